package api

type Reminder struct {
	Key       string  `json:"key"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Hour      int     `json:"hour"`
	GroupID   string  `json:"groupId"`
	BillID    string  `json:"billId"`
	MemberID  string  `json:"memberId"`
	Amount    float64 `json:"amount"`
	LastFired int64   `json:"lastFired,omitempty"`
}

// ScheduleReminderRequest schedules a daily reminder for what the member
// still owes on the bill.
type ScheduleReminderRequest struct {
	GroupID  string `json:"groupId"`
	BillID   string `json:"billId"`
	MemberID string `json:"memberId"`
	Hour     int    `json:"hour"`
}

type ReminderResponse struct {
	Reminder *Reminder `json:"reminder"`
}

type CancelReminderRequest struct {
	GroupID  string `json:"groupId"`
	BillID   string `json:"billId"`
	MemberID string `json:"memberId"`
}

type ListRemindersRequest struct {
	GroupID string `json:"groupId"`
}

type ListRemindersResponse struct {
	Reminders []Reminder `json:"reminders"`
}
