package models

// Group represents a set of members who split bills together.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// OwnerID is the user who created the group.
	OwnerID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Note is an optional free-text description.
	Note string

	// Currency is the ISO 4217 code all amounts in the group are expressed in.
	Currency string

	// TrackSpending enables per-member spending summaries for the group.
	TrackSpending bool

	// Members are the people in the group, archived ones included.
	Members []Member

	// Bills are the shared expenses recorded in the group.
	Bills []Bill

	// Settlements are repayments recorded between members.
	Settlements []Settlement

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member is a person inside exactly one group.
type Member struct {
	ID string

	Name string

	// Contact is an optional phone number or email.
	Contact string

	// Archived members keep their history but are hidden from new bills.
	Archived bool
}

// ActiveMembers returns the members that are not archived.
func (g *Group) ActiveMembers() []Member {
	var active []Member
	for _, m := range g.Members {
		if !m.Archived {
			active = append(active, m)
		}
	}
	return active
}

// FindMember returns the member with the given ID, or nil.
func (g *Group) FindMember(memberID string) *Member {
	for i := range g.Members {
		if g.Members[i].ID == memberID {
			return &g.Members[i]
		}
	}
	return nil
}

// GroupPatch carries the optional fields of a group update.
// Nil fields are left unchanged.
type GroupPatch struct {
	Name          *string
	Note          *string
	Currency      *string
	TrackSpending *bool
}
