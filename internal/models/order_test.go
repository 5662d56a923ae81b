package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gt-shop/internal/models"
)

func TestStatusLabelRendersTerminalStates(t *testing.T) {
	assert.Equal(t, models.LabelAccepted, models.StatusLabel(models.StatusAccepted))
	assert.Equal(t, models.LabelDeclined, models.StatusLabel(models.StatusDeclined))
	assert.Equal(t, models.StatusPendingConfirmation, models.StatusLabel(models.StatusPendingConfirmation))
}

func TestNormalizeStatusFoldsLegacyLabels(t *testing.T) {
	assert.Equal(t, models.StatusAccepted, models.NormalizeStatus(models.LabelAccepted))
	assert.Equal(t, models.StatusDeclined, models.NormalizeStatus(models.LabelDeclined))
	assert.Equal(t, models.StatusAwaitingAdminReview, models.NormalizeStatus(models.StatusAwaitingAdminReview))
	assert.Equal(t, "", models.NormalizeStatus(""))
}

func TestStatusRoundTrip(t *testing.T) {
	for _, status := range []string{models.StatusAccepted, models.StatusDeclined} {
		assert.Equal(t, status, models.NormalizeStatus(models.StatusLabel(status)))
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, (&models.Order{Status: models.StatusAccepted}).Terminal())
	assert.True(t, (&models.Order{Status: models.StatusDeclined}).Terminal())
	assert.False(t, (&models.Order{Status: models.StatusPendingConfirmation}).Terminal())
	assert.False(t, (&models.Order{Status: models.StatusAwaitingAdminReview}).Terminal())
}

func TestPaymentTargetIsSnapshot(t *testing.T) {
	o := &models.Order{
		PaymentProvider:      "DANA",
		PaymentAccountNumber: "081234567890",
		PaymentAccountName:   "GT SHOP",
	}
	target := o.PaymentTarget()

	assert.Equal(t, "DANA", target.Provider)
	assert.Equal(t, "081234567890", target.AccountNumber)
	assert.Equal(t, "GT SHOP", target.AccountName)
}
