package api

// SplitInput describes how one bill is paid and divided.
type SplitInput struct {
	// Amount is the pre-tax bill amount.
	Amount float64 `json:"amount"`
	// TaxPercent is the combined tax, service charge and VAT percentage.
	TaxPercent     float64  `json:"taxPercent"`
	ParticipantIDs []string `json:"participantIds"`
	// Mode is "equal" or "exact". Empty means equal.
	Mode         string             `json:"mode,omitempty"`
	ExactAmounts map[string]float64 `json:"exactAmounts,omitempty"`
	// PayerID paid the whole bill unless Contributions is set.
	PayerID       string             `json:"payerId,omitempty"`
	Contributions map[string]float64 `json:"contributions,omitempty"`
}

type Contribution struct {
	MemberID string  `json:"memberId"`
	Amount   float64 `json:"amount"`
}

type Split struct {
	MemberID string  `json:"memberId"`
	Share    float64 `json:"share"`
	Settled  bool    `json:"settled"`
	// Owed is the share left after the member's own contribution.
	Owed float64 `json:"owed"`
}

type Bill struct {
	ID            string         `json:"id"`
	GroupID       string         `json:"groupId"`
	Title         string         `json:"title"`
	Amount        float64        `json:"amount"`
	TaxPercent    float64        `json:"taxPercent"`
	Mode          string         `json:"mode"`
	FinalAmount   float64        `json:"finalAmount"`
	Status        string         `json:"status"`
	Contributions []Contribution `json:"contributions"`
	Splits        []Split        `json:"splits"`
	CreatedAt     int64          `json:"createdAt"`
}

type CalculateSplitRequest struct {
	SplitInput
}

type CalculateSplitResponse struct {
	FinalAmount         float64 `json:"finalAmount"`
	EffectiveBase       float64 `json:"effectiveBase"`
	EffectiveTaxPercent float64 `json:"effectiveTaxPercent"`
	// Normalized is set when the exact amounts did not add up to the amount
	// and the difference was folded into the tax percentage.
	Normalized           bool           `json:"normalized"`
	AdditionalTaxPercent float64        `json:"additionalTaxPercent"`
	Total                float64        `json:"total"`
	Splits               []Split        `json:"splits"`
	Contributions        []Contribution `json:"contributions"`
}

type CreateBillRequest struct {
	GroupID string `json:"groupId"`
	Title   string `json:"title,omitempty"`
	SplitInput
}

type BillResponse struct {
	Bill *Bill `json:"bill"`
	// Normalized and AdditionalTaxPercent report how the last write folded
	// a custom-amount difference into the tax percentage.
	Normalized           bool    `json:"normalized,omitempty"`
	AdditionalTaxPercent float64 `json:"additionalTaxPercent,omitempty"`
}

type GetBillRequest struct {
	GroupID string `json:"groupId"`
	BillID  string `json:"billId"`
}

type UpdateBillRequest struct {
	GroupID string `json:"groupId"`
	BillID  string `json:"billId"`
	Title   string `json:"title,omitempty"`
	SplitInput
}

type DeleteBillRequest struct {
	GroupID string `json:"groupId"`
	BillID  string `json:"billId"`
}

type ListBillsRequest struct {
	GroupID string `json:"groupId"`
}

type ListBillsResponse struct {
	Bills []Bill `json:"bills"`
}

type MarkSplitPaidRequest struct {
	GroupID  string `json:"groupId"`
	BillID   string `json:"billId"`
	MemberID string `json:"memberId"`
	Reason   string `json:"reason,omitempty"`
}

// UnmarkSplitPaidRequest reopens a paid split. Reason is required.
type UnmarkSplitPaidRequest struct {
	GroupID  string `json:"groupId"`
	BillID   string `json:"billId"`
	MemberID string `json:"memberId"`
	Reason   string `json:"reason"`
}

type SplitEvent struct {
	ID        string `json:"id"`
	MemberID  string `json:"memberId"`
	Settled   bool   `json:"settled"`
	Reason    string `json:"reason,omitempty"`
	CreatedBy string `json:"createdBy"`
	CreatedAt int64  `json:"createdAt"`
}

type ListSplitEventsRequest struct {
	GroupID string `json:"groupId"`
	BillID  string `json:"billId"`
}

type ListSplitEventsResponse struct {
	Events []SplitEvent `json:"events"`
}
