package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrBadContentType = errors.New("please upload a valid image file (JPG, PNG, WebP)")
	ErrTooLarge       = errors.New("file size must be less than 10MB")
)

const maxProofSize = 10 << 20 // 10MB

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ProofStore persists uploaded payment-proof images and returns a public
// URL. One blocking put-then-URL step, no resumability; failures surface to
// the caller with no automatic retry.
type ProofStore struct {
	BaseDir string
	BaseURL string
}

func NewProofStore(baseDir, baseURL string) *ProofStore {
	return &ProofStore{
		BaseDir: baseDir,
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SaveProof validates and writes one proof image under the order's
// directory, named with a timestamp prefix so re-uploads never collide.
func (p *ProofStore) SaveProof(orderID, filename, contentType string, size int64, r io.Reader) (string, error) {
	if _, ok := allowedTypes[contentType]; !ok {
		return "", ErrBadContentType
	}
	if size > maxProofSize {
		return "", ErrTooLarge
	}

	dir := filepath.Join(p.BaseDir, "proofs", orderID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create proof directory: %w", err)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), sanitizeFilename(filename))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(r, maxProofSize+1)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write proof file: %w", err)
	}

	return fmt.Sprintf("%s/uploads/proofs/%s/%s", p.BaseURL, orderID, name), nil
}

// SaveQR writes a generated payment-method QR code PNG and returns its URL.
func (p *ProofStore) SaveQR(methodKey string, png []byte) (string, error) {
	dir := filepath.Join(p.BaseDir, "qr")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create qr directory: %w", err)
	}

	name := sanitizeFilename(methodKey) + ".png"
	if err := os.WriteFile(filepath.Join(dir, name), png, 0644); err != nil {
		return "", fmt.Errorf("write qr file: %w", err)
	}

	return fmt.Sprintf("%s/uploads/qr/%s", p.BaseURL, name), nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
