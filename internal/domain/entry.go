package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyEntry is a single cash gift recorded at the event.
type MoneyEntry struct {
	ID           string
	GuestName    string
	Address      string
	Amount       decimal.Decimal
	EnteredBy    string
	Timestamp    time.Time
	ModifiedBy   string
	LastModified *time.Time

	// Snapshot of the event metadata at the time the entry was recorded.
	EventName string
	EventDate string
	HostName  string
}

// EntryInput carries the editable fields of a MoneyEntry.
type EntryInput struct {
	GuestName string
	Address   string
	Amount    decimal.Decimal
}

// EntrySummary aggregates the entry list for dashboards.
type EntrySummary struct {
	Entries      int
	Total        decimal.Decimal
	Contributors int
}

// SummarizeEntries totals the given entries.
func SummarizeEntries(entries []MoneyEntry) EntrySummary {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(entries[i].Amount)
	}
	return EntrySummary{Entries: len(entries), Total: total}
}
