package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/storage"
)

// CreateGroup persists a new group and its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, owner_id, name, note, currency, track_spending, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.OwnerID, group.Name, group.Note, group.Currency, group.TrackSpending, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group.ID, group.Members, 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertMembers assigns missing IDs in place and inserts members starting at position.
func insertMembers(ctx context.Context, tx *sql.Tx, groupID string, members []models.Member, position int) error {
	for i := range members {
		m := &members[i]
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO members (id, group_id, name, contact, archived, position) VALUES (?, ?, ?, ?, ?, ?)",
			m.ID, groupID, m.Name, m.Contact, m.Archived, position+i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

// GetGroup retrieves a group with members, bills and settlements.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, note, currency, track_spending, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.OwnerID, &group.Name, &group.Note, &group.Currency, &group.TrackSpending, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.loadMembers(ctx, "group_id = ?", groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members[groupID]

	if group.Bills, err = s.ListBills(ctx, groupID); err != nil {
		return nil, err
	}
	if group.Settlements, err = s.ListSettlements(ctx, groupID); err != nil {
		return nil, err
	}

	return group, nil
}

// ListGroups retrieves an owner's groups with their members.
func (s *SQLiteStore) ListGroups(ctx context.Context, ownerID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, note, currency, track_spending, created_at
		 FROM groups WHERE owner_id = ? ORDER BY created_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.OwnerID, &group.Name, &group.Note, &group.Currency, &group.TrackSpending, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	if len(groups) == 0 {
		return groups, nil
	}

	members, err := s.loadMembers(ctx, "group_id IN (SELECT id FROM groups WHERE owner_id = ?)", ownerID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.Members = members[g.ID]
	}

	return groups, nil
}

// loadMembers returns members keyed by group ID, in insertion order.
func (s *SQLiteStore) loadMembers(ctx context.Context, where string, args ...any) (map[string][]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, group_id, name, contact, archived FROM members WHERE "+where+" ORDER BY group_id, position",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	byGroup := make(map[string][]models.Member)
	for rows.Next() {
		var groupID string
		var m models.Member
		if err := rows.Scan(&m.ID, &groupID, &m.Name, &m.Contact, &m.Archived); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		byGroup[groupID] = append(byGroup[groupID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return byGroup, nil
}

// UpdateGroup applies the non-nil fields of patch to a group.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, groupID string, patch models.GroupPatch) error {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, *patch.Note)
	}
	if patch.Currency != nil {
		sets = append(sets, "currency = ?")
		args = append(args, *patch.Currency)
	}
	if patch.TrackSpending != nil {
		sets = append(sets, "track_spending = ?")
		args = append(args, *patch.TrackSpending)
	}

	if len(sets) == 0 {
		// Nothing to change, but the group must still exist
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
		}
		if err != nil {
			return fmt.Errorf("failed to check group existence: %w", err)
		}
		return nil
	}

	args = append(args, groupID)
	result, err := s.db.ExecContext(ctx,
		"UPDATE groups SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return expectRow(result, "group", groupID)
}

// DeleteGroup removes a group; members, bills and settlements cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return expectRow(result, "group", groupID)
}

// AddMembers appends members after the group's existing ones.
func (s *SQLiteStore) AddMembers(ctx context.Context, groupID string, members []models.Member) ([]models.Member, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check group existence: %w", err)
	}

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM members WHERE group_id = ?", groupID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to get member position: %w", err)
	}

	added := append([]models.Member(nil), members...)
	if err := insertMembers(ctx, tx, groupID, added, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return added, nil
}

// ArchiveMember sets the archived flag of a member.
func (s *SQLiteStore) ArchiveMember(ctx context.Context, groupID, memberID string, archived bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE members SET archived = ? WHERE id = ? AND group_id = ?",
		archived, memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to archive member: %w", err)
	}
	return expectRow(result, "member", memberID)
}

// DeleteMember removes a member only if no contribution, split or settlement references them.
func (s *SQLiteStore) DeleteMember(ctx context.Context, groupID, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM contributions WHERE member_id = ?) +
		   (SELECT COUNT(*) FROM splits WHERE member_id = ?) +
		   (SELECT COUNT(*) FROM settlements WHERE from_id = ? OR to_id = ?)`,
		memberID, memberID, memberID, memberID,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to check member references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: %s", storage.ErrMemberInUse, memberID)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM members WHERE id = ? AND group_id = ?", memberID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if err := expectRow(result, "member", memberID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
