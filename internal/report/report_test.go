package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moi-note/internal/domain"
)

var testEvent = domain.EventMetadata{Name: "Wedding Function", Date: "2026-05-12", HostName: "Ravi"}

func entriesOf(n int) []domain.MoneyEntry {
	entries := make([]domain.MoneyEntry, n)
	for i := range entries {
		entries[i] = domain.MoneyEntry{
			ID:        fmt.Sprintf("e%d", i),
			GuestName: fmt.Sprintf("Guest %d", i),
			Address:   "12 Temple Street, Chennai",
			Amount:    decimal.NewFromInt(int64(100 * (i + 1))),
			EnteredBy: "alice@example.com",
			Timestamp: time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC),
		}
	}
	return entries
}

func TestRender_WritesPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, testEvent, entriesOf(3), time.Now(), nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRender_EmptyReport(t *testing.T) {
	pdf, err := build(testEvent, nil, time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pdf.PageCount())
}

func TestRender_PaginatesLongTables(t *testing.T) {
	pdf, err := build(testEvent, entriesOf(120), time.Now(), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pdf.PageCount(), 3)
}

func TestRender_LongAndNonASCIIText(t *testing.T) {
	entries := entriesOf(1)
	entries[0].GuestName = "Thiru. Müller Venkataraghavan Srinivasan Ramaswamy"
	entries[0].Address = "Flat 4B, Very Long Apartment Name, Another Long Street Name, Coimbatore"

	var buf bytes.Buffer
	assert.NoError(t, Render(&buf, testEvent, entries, time.Now(), nil))
}

func TestRender_DatesFollowLocation(t *testing.T) {
	entries := entriesOf(1)
	// 20:30 UTC on the 12th is already the 13th in India
	entries[0].Timestamp = time.Date(2026, 5, 12, 20, 30, 0, 0, time.UTC)
	generatedAt := time.Date(2026, 5, 12, 21, 0, 0, 0, time.UTC)
	ist := time.FixedZone("IST", 5*3600+1800)

	render := func(loc *time.Location) []byte {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, testEvent, entries, generatedAt, loc))
		return buf.Bytes()
	}

	utc := render(nil)
	assert.Equal(t, utc, render(nil), "output is deterministic")
	assert.Equal(t, utc, render(time.UTC))
	assert.NotEqual(t, utc, render(ist))
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":         "Rs. 0",
		"501":       "Rs. 501",
		"1000":      "Rs. 1,000",
		"12500.5":   "Rs. 12,500.50",
		"1234567.8": "Rs. 1,234,567.80",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(decimal.RequireFromString(in)), in)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Wedding Function_Report.pdf", Filename(testEvent))
	assert.Equal(t, "A_B_Report.pdf", Filename(domain.EventMetadata{Name: "A/B"}))
	assert.Equal(t, "Event_Report.pdf", Filename(domain.EventMetadata{}))
}
