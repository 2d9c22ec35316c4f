// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tabsplit/internal/models"
)

var (
	// ErrNotFound is returned when a group, member, bill, split or settlement does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMemberInUse is returned when deleting a member still referenced by a
	// contribution, split or settlement. Archive the member instead.
	ErrMemberInUse = errors.New("member has bill or settlement history")

	// ErrAlreadyExists is returned when a unique key such as a user email is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Store defines the interface for group, bill and settlement storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer. Writes are readable immediately.
type Store interface {
	// CreateGroup persists a new group with its initial members.
	// The group and member ID fields will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members, bills and settlements.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups returns the owner's groups with members but without bills or settlements.
	ListGroups(ctx context.Context, ownerID string) ([]*models.Group, error)

	// UpdateGroup applies the non-nil fields of patch.
	UpdateGroup(ctx context.Context, groupID string, patch models.GroupPatch) error

	// DeleteGroup removes a group and everything it owns.
	DeleteGroup(ctx context.Context, groupID string) error

	// AddMembers appends members to a group, assigning IDs where missing.
	AddMembers(ctx context.Context, groupID string, members []models.Member) ([]models.Member, error)

	// ArchiveMember sets or clears a member's archived flag.
	ArchiveMember(ctx context.Context, groupID, memberID string, archived bool) error

	// DeleteMember removes a member that has no history.
	// Returns ErrMemberInUse otherwise.
	DeleteMember(ctx context.Context, groupID, memberID string) error

	// CreateBill persists a bill with its contributions and splits in one transaction.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill of a group by ID.
	GetBill(ctx context.Context, groupID, billID string) (*models.Bill, error)

	// UpdateBill replaces a bill's fields, contributions and splits.
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// DeleteBill removes a bill.
	DeleteBill(ctx context.Context, groupID, billID string) error

	// ListBills returns a group's bills, newest first.
	ListBills(ctx context.Context, groupID string) ([]models.Bill, error)

	// SetSplitSettled marks a member's split paid or unpaid and records the
	// change with its reason in the split audit log.
	SetSplitSettled(ctx context.Context, groupID, billID, memberID string, settled bool, reason, actor string) error

	// ListSplitEvents returns the audit log of a bill, oldest first.
	ListSplitEvents(ctx context.Context, billID string) ([]models.SplitEvent, error)

	// CreateSettlement records a repayment between two members.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlements returns a group's settlements, newest first.
	ListSettlements(ctx context.Context, groupID string) ([]models.Settlement, error)

	// DeleteSettlement removes a settlement of a group.
	DeleteSettlement(ctx context.Context, groupID, settlementID string) error

	// Close releases any resources held by the store.
	Close() error
}
