// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/tabsplit/internal/models"
	"github.com/mmynk/tabsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := buildDSN(dbPath)

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// buildDSN enables foreign keys and a busy timeout on every pooled connection.
func buildDSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBill persists a new bill to the database.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Title == "" {
		bill.Title = generateTitle(bill.CreatedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO bills (id, group_id, title, amount, tax, mode, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		bill.ID, bill.GroupID, bill.Title, bill.Amount, bill.Tax, string(bill.Mode), bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	if err := insertBillLines(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateBill replaces an existing bill, including contributions and splits.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE bills SET title = ?, amount = ?, tax = ?, mode = ? WHERE id = ? AND group_id = ?",
		bill.Title, bill.Amount, bill.Tax, string(bill.Mode), bill.ID, bill.GroupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	if err := expectRow(result, "bill", bill.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM contributions WHERE bill_id = ?", bill.ID); err != nil {
		return fmt.Errorf("failed to delete contributions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM splits WHERE bill_id = ?", bill.ID); err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}

	if err := insertBillLines(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertBillLines(ctx context.Context, tx *sql.Tx, bill *models.Bill) error {
	for i, c := range bill.Contributions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO contributions (bill_id, member_id, amount, position) VALUES (?, ?, ?, ?)",
			bill.ID, c.MemberID, c.Amount, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contribution: %w", err)
		}
	}

	for i, sp := range bill.Splits {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO splits (bill_id, member_id, share, settled, position) VALUES (?, ?, ?, ?, ?)",
			bill.ID, sp.MemberID, sp.Share, sp.Settled, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	return nil
}

// GetBill retrieves a bill by ID, including contributions and splits.
func (s *SQLiteStore) GetBill(ctx context.Context, groupID, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	var mode string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, title, amount, tax, mode, created_at FROM bills WHERE id = ? AND group_id = ?",
		billID, groupID,
	).Scan(&bill.ID, &bill.GroupID, &bill.Title, &bill.Amount, &bill.Tax, &mode, &bill.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bill %s", storage.ErrNotFound, billID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	bill.Mode = models.SplitMode(mode)

	contributions, err := s.loadContributions(ctx, "c.bill_id = ?", billID)
	if err != nil {
		return nil, err
	}
	splits, err := s.loadSplits(ctx, "sp.bill_id = ?", billID)
	if err != nil {
		return nil, err
	}
	bill.Contributions = contributions[billID]
	bill.Splits = splits[billID]

	return bill, nil
}

// ListBills retrieves all bills of a group with their contributions and splits.
func (s *SQLiteStore) ListBills(ctx context.Context, groupID string) ([]models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, title, amount, tax, mode, created_at
		 FROM bills WHERE group_id = ? ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		var bill models.Bill
		var mode string
		if err := rows.Scan(&bill.ID, &bill.GroupID, &bill.Title, &bill.Amount, &bill.Tax, &mode, &bill.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bill.Mode = models.SplitMode(mode)
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	if len(bills) == 0 {
		return bills, nil
	}

	where := "c.bill_id IN (SELECT id FROM bills WHERE group_id = ?)"
	contributions, err := s.loadContributions(ctx, where, groupID)
	if err != nil {
		return nil, err
	}
	splits, err := s.loadSplits(ctx, strings.Replace(where, "c.", "sp.", 1), groupID)
	if err != nil {
		return nil, err
	}
	for i := range bills {
		bills[i].Contributions = contributions[bills[i].ID]
		bills[i].Splits = splits[bills[i].ID]
	}

	return bills, nil
}

// loadContributions returns contributions keyed by bill ID, in insertion order.
func (s *SQLiteStore) loadContributions(ctx context.Context, where string, args ...any) (map[string][]models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT c.bill_id, c.member_id, c.amount FROM contributions c WHERE "+where+" ORDER BY c.bill_id, c.position",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contributions: %w", err)
	}
	defer rows.Close()

	byBill := make(map[string][]models.Contribution)
	for rows.Next() {
		var billID string
		var c models.Contribution
		if err := rows.Scan(&billID, &c.MemberID, &c.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		byBill[billID] = append(byBill[billID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}

	return byBill, nil
}

// loadSplits returns splits keyed by bill ID, in insertion order.
func (s *SQLiteStore) loadSplits(ctx context.Context, where string, args ...any) (map[string][]models.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT sp.bill_id, sp.member_id, sp.share, sp.settled FROM splits sp WHERE "+where+" ORDER BY sp.bill_id, sp.position",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	byBill := make(map[string][]models.Split)
	for rows.Next() {
		var billID string
		var sp models.Split
		if err := rows.Scan(&billID, &sp.MemberID, &sp.Share, &sp.Settled); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		byBill[billID] = append(byBill[billID], sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return byBill, nil
}

// DeleteBill removes a bill and, through cascades, its lines and audit log.
func (s *SQLiteStore) DeleteBill(ctx context.Context, groupID, billID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ? AND group_id = ?", billID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	return expectRow(result, "bill", billID)
}

// SetSplitSettled flips a split's settled flag and appends an audit event.
func (s *SQLiteStore) SetSplitSettled(ctx context.Context, groupID, billID, memberID string, settled bool, reason, actor string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE splits SET settled = ?
		 WHERE bill_id = ? AND member_id = ?
		   AND bill_id IN (SELECT id FROM bills WHERE group_id = ?)`,
		settled, billID, memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update split: %w", err)
	}
	if err := expectRow(result, "split", billID+"/"+memberID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO split_events (id, bill_id, member_id, settled, reason, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), billID, memberID, settled, reason, actor, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert split event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListSplitEvents returns the settle/unsettle history of a bill.
func (s *SQLiteStore) ListSplitEvents(ctx context.Context, billID string) ([]models.SplitEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bill_id, member_id, settled, reason, created_by, created_at
		 FROM split_events WHERE bill_id = ? ORDER BY created_at, rowid`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list split events: %w", err)
	}
	defer rows.Close()

	var events []models.SplitEvent
	for rows.Next() {
		var e models.SplitEvent
		if err := rows.Scan(&e.ID, &e.BillID, &e.MemberID, &e.Settled, &e.Reason, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan split event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split events: %w", err)
	}

	return events, nil
}

// expectRow turns a zero-row write into storage.ErrNotFound.
func expectRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", storage.ErrNotFound, kind, id)
	}
	return nil
}

// generateTitle creates a dated title for bills saved without one.
func generateTitle(createdAt int64) string {
	return fmt.Sprintf("Bill - %s", time.Unix(createdAt, 0).Format("Jan 2, 2006"))
}
