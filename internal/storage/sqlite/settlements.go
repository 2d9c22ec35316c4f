package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/storage"
)

// CreateSettlement records a repayment. Both members must belong to the
// settlement's group, otherwise nothing is written and storage.ErrNotFound
// is returned.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_id, to_id, amount, note, created_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM members WHERE group_id = ? AND id IN (?, ?)) = 2`,
		settlement.ID, settlement.GroupID, settlement.FromID, settlement.ToID,
		settlement.Amount, settlement.Note, settlement.CreatedAt,
		settlement.GroupID, settlement.FromID, settlement.ToID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check inserted settlement: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: members %s, %s in group %s",
			storage.ErrNotFound, settlement.FromID, settlement.ToID, settlement.GroupID)
	}
	return nil
}

// ListSettlements returns a group's settlements, newest first.
func (s *SQLiteStore) ListSettlements(ctx context.Context, groupID string) ([]models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_id, to_id, amount, note, created_at
		 FROM settlements WHERE group_id = ? ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		st := models.Settlement{GroupID: groupID}
		if err := rows.Scan(&st.ID, &st.FromID, &st.ToID, &st.Amount, &st.Note, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

// DeleteSettlement removes a settlement of the group.
func (s *SQLiteStore) DeleteSettlement(ctx context.Context, groupID, settlementID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM settlements WHERE id = ? AND group_id = ?", settlementID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	return expectRow(result, "settlement", settlementID)
}
