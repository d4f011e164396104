package domain

import "time"

// EventDateLayout is the layout of EventMetadata.Date.
const EventDateLayout = "2006-01-02"

// EventMetadata describes the single event the ledger belongs to.
type EventMetadata struct {
	Name        string
	Date        string
	HostName    string
	HostPhoto   string
	CreatedAt   time.Time
	LastUpdated *time.Time
}

// DefaultEventMetadata is stored the first time the event is read.
func DefaultEventMetadata(now time.Time) EventMetadata {
	return EventMetadata{
		Name:      "Wedding Function",
		Date:      now.Format(EventDateLayout),
		HostName:  "Host Name",
		CreatedAt: now,
	}
}

// EventInput carries the admin-editable event fields.
type EventInput struct {
	Name     string
	Date     string
	HostName string
}
