package models

// Reminder is a daily notification nudging one member to pay back a bill.
type Reminder struct {
	// Key identifies the reminder; one reminder per group/bill/member.
	Key string

	Title string
	Body  string

	// Hour is the local hour of day (0-23) the reminder fires.
	Hour int

	GroupID  string
	BillID   string
	MemberID string

	// Amount is the owed amount the body was rendered from.
	Amount float64

	// LastFired is the Unix timestamp of the last dispatch, 0 if never.
	LastFired int64
}
