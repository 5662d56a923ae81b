package order

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gt-shop/internal/models"
)

// ValidationErrors aggregates every failed check on a submission so the
// caller can display all problems at once instead of fixing them one by one.
type ValidationErrors struct {
	Problems []string
}

func (v *ValidationErrors) Error() string {
	return strings.Join(v.Problems, ", ")
}

func (v *ValidationErrors) add(format string, args ...interface{}) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationErrors) empty() bool { return len(v.Problems) == 0 }

var (
	tagPattern     = regexp.MustCompile(`[<>]`)
	alnumPattern   = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	nonDigit       = regexp.MustCompile(`\D`)
	maxNotesLength = 500
)

// SanitizeInput trims, strips angle brackets and bounds the length of a
// free-text field.
func SanitizeInput(input string) string {
	cleaned := tagPattern.ReplaceAllString(input, "")
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > 1000 {
		cleaned = cleaned[:1000]
	}
	return cleaned
}

// NormalizePhone converts a local number to E.164 for the configured country
// code: a leading "0" is replaced by the code, a bare subscriber number
// (leading "8") gets the code prepended, and an already-prefixed number
// passes through. Idempotent.
func NormalizePhone(phone, countryCode string) string {
	normalized := nonDigit.ReplaceAllString(phone, "")

	switch {
	case strings.HasPrefix(normalized, "0"):
		normalized = countryCode + normalized[1:]
	case strings.HasPrefix(normalized, countryCode):
		// already prefixed
	case strings.HasPrefix(normalized, "8"):
		normalized = countryCode + normalized
	}

	return "+" + normalized
}

// ValidPhone checks the normalized form: +<countrycode> then 9 to 13 digits.
func ValidPhone(phone, countryCode string) bool {
	pattern := regexp.MustCompile(`^\+` + regexp.QuoteMeta(countryCode) + `[0-9]{9,13}$`)
	return pattern.MatchString(phone)
}

// CatalogInfo is what validation needs to know from the config store.
type CatalogInfo struct {
	CountryCode string
	MaxQuantity int
	HasRPSItem  func(key string) bool
}

// ValidateRequest checks and normalizes a buyer submission in place.
// Failures are aggregated; the returned error is a *ValidationErrors when
// any check fails.
func ValidateRequest(req *models.OrderRequest, catalog CatalogInfo) error {
	errs := &ValidationErrors{}

	req.World = SanitizeInput(req.World)
	req.GrowID = SanitizeInput(req.GrowID)
	req.CustomerName = SanitizeInput(req.CustomerName)
	req.Notes = SanitizeInput(req.Notes)
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))

	if req.World == "" || utf8.RuneCountInString(req.World) > 30 {
		errs.add("World name is required and must be under 30 characters")
	}

	if req.GrowID == "" || utf8.RuneCountInString(req.GrowID) > 30 {
		errs.add("GrowID is required and must be under 30 characters")
	} else if !alnumPattern.MatchString(req.GrowID) {
		errs.add("GrowID must contain only letters and digits")
	}

	if req.CustomerName == "" || utf8.RuneCountInString(req.CustomerName) > 50 {
		errs.add("Customer name is required and must be under 50 characters")
	}

	if req.WhatsappNumber == "" {
		errs.add("WhatsApp number is required")
	} else {
		req.WhatsappNumber = NormalizePhone(req.WhatsappNumber, catalog.CountryCode)
		if !ValidPhone(req.WhatsappNumber, catalog.CountryCode) {
			errs.add("Invalid WhatsApp number format")
		}
	}

	if utf8.RuneCountInString(req.Notes) > maxNotesLength {
		errs.add("Notes must be under %d characters", maxNotesLength)
	}

	if req.Quantity < 1 {
		errs.add("Quantity must be at least 1")
	} else if catalog.MaxQuantity > 0 && req.Quantity > catalog.MaxQuantity {
		errs.add("Maximum quantity is %d", catalog.MaxQuantity)
	}

	switch req.Category {
	case models.CategoryRGT:
		pt := strings.ToLower(strings.TrimSpace(req.PurchaseType))
		if pt != "dl" && pt != "bgl" {
			errs.add("Purchase type must be dl or bgl")
		}
		req.PurchaseType = pt
		req.ItemKey = ""
	case models.CategoryRPS:
		if req.ItemKey == "" {
			errs.add("Item is required")
		} else if catalog.HasRPSItem != nil && !catalog.HasRPSItem(req.ItemKey) {
			errs.add("Unknown item %q", req.ItemKey)
		}
		req.PurchaseType = ""
	case "":
		errs.add("Category is required")
	default:
		errs.add("Category must be RGT or RPS")
	}

	if errs.empty() {
		return nil
	}
	return errs
}
