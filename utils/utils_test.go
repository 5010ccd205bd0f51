package utils

import (
	"testing"
	"time"

	"grants-management-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "", "0.00"},
		{"999.5", "USD", "USD 999.50"},
		{"1234567.891", "EUR", "EUR 1,234,567.89"},
		{"-1000", " KES ", "KES -1,000.00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatAmount(decimal.RequireFromString(tc.amount), tc.currency), tc.amount)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 2, 9, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-09", FormatDate(d))
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "", FormatDatePtr(nil))
	assert.Equal(t, "2024-02-09", FormatDatePtr(&d))
}

func TestNormalizeGrantStatus(t *testing.T) {
	assert.Equal(t, models.GrantStatusActive, NormalizeGrantStatus(" Open "))
	assert.Equal(t, models.GrantStatusCancelled, NormalizeGrantStatus("CANCELED"))
	assert.Equal(t, models.GrantStatusPending, NormalizeGrantStatus("under review"))
	assert.Equal(t, models.GrantStatus("archived"), NormalizeGrantStatus("Archived"))

	assert.True(t, IsKnownGrantStatus("late"))
	assert.False(t, IsKnownGrantStatus("archived"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Clean Water", SanitizeInput("  Clean\x00 Water \n"))
}
