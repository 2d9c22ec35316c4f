package api

type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Contact  string `json:"contact,omitempty"`
	Archived bool   `json:"archived"`
}

// NewMember is a member to be added to a group.
type NewMember struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

type Group struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Note          string   `json:"note,omitempty"`
	Currency      string   `json:"currency"`
	TrackSpending bool     `json:"trackSpending"`
	Members       []Member `json:"members"`
	CreatedAt     int64    `json:"createdAt"`
}

type Settlement struct {
	ID        string  `json:"id"`
	FromID    string  `json:"fromId"`
	ToID      string  `json:"toId"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note,omitempty"`
	CreatedAt int64   `json:"createdAt"`
}

type CreateGroupRequest struct {
	Name          string      `json:"name"`
	Note          string      `json:"note,omitempty"`
	Currency      string      `json:"currency"`
	TrackSpending bool        `json:"trackSpending"`
	Members       []NewMember `json:"members"`
}

type GroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group       *Group       `json:"group"`
	Bills       []Bill       `json:"bills"`
	Settlements []Settlement `json:"settlements"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

// UpdateGroupRequest changes only the fields that are set.
type UpdateGroupRequest struct {
	GroupID       string  `json:"groupId"`
	Name          *string `json:"name,omitempty"`
	Note          *string `json:"note,omitempty"`
	Currency      *string `json:"currency,omitempty"`
	TrackSpending *bool   `json:"trackSpending,omitempty"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}

type AddMembersRequest struct {
	GroupID string      `json:"groupId"`
	Members []NewMember `json:"members"`
}

type AddMembersResponse struct {
	Members []Member `json:"members"`
}

type ArchiveMemberRequest struct {
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
	Archived bool   `json:"archived"`
}

type DeleteMemberRequest struct {
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
	// DisplayCurrency converts the Display strings when set. Raw amounts
	// stay in the group currency.
	DisplayCurrency string `json:"displayCurrency,omitempty"`
}

// MemberBalance is positive when the group owes the member.
type MemberBalance struct {
	MemberID   string  `json:"memberId"`
	Name       string  `json:"name"`
	NetBalance float64 `json:"netBalance"`
	TotalPaid  float64 `json:"totalPaid"`
	TotalOwed  float64 `json:"totalOwed"`
	// Display is NetBalance formatted in the group currency.
	Display string `json:"display"`
}

// DebtEdge is a suggested payment that settles part of the group's debts.
type DebtEdge struct {
	FromID  string  `json:"fromId"`
	ToID    string  `json:"toId"`
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

type GetGroupBalancesResponse struct {
	Balances []MemberBalance `json:"balances"`
	Debts    []DebtEdge      `json:"debts"`
}

type GetGroupSpendingRequest struct {
	GroupID string `json:"groupId"`
}

type MemberSpending struct {
	MemberID string  `json:"memberId"`
	Name     string  `json:"name"`
	Spent    float64 `json:"spent"`
	Bills    int     `json:"bills"`
}

type GetGroupSpendingResponse struct {
	Spending []MemberSpending `json:"spending"`
	Total    float64          `json:"total"`
}

type RecordSettlementRequest struct {
	GroupID string  `json:"groupId"`
	FromID  string  `json:"fromId"`
	ToID    string  `json:"toId"`
	Amount  float64 `json:"amount"`
	Note    string  `json:"note,omitempty"`
}

type SettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"groupId"`
}

type ListSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

type DeleteSettlementRequest struct {
	GroupID      string `json:"groupId"`
	SettlementID string `json:"settlementId"`
}
