package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/birdieclub/birdie/internal/model"
)

type FeeStore struct {
	db *sql.DB
}

func NewFeeStore(db *sql.DB) *FeeStore {
	return &FeeStore{db: db}
}

func scanFee(scanner interface{ Scan(...any) error }) (*model.Fee, error) {
	var f model.Fee
	err := scanner.Scan(&f.ID, &f.MemberID, &f.Year, &f.Month, &f.Paid, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

const feeCols = `id, member_id, year, month, paid, updated_at`

// Upsert records the paid flag for (memberID, year, month), creating the row
// on first use and overwriting it afterwards.
func (s *FeeStore) Upsert(memberID int64, year, month int, paid bool) (*model.Fee, error) {
	row := s.db.QueryRow(
		`INSERT INTO fees (member_id, year, month, paid) VALUES (?, ?, ?, ?)
		 ON CONFLICT (member_id, year, month)
		 DO UPDATE SET paid = excluded.paid, updated_at = CURRENT_TIMESTAMP
		 RETURNING `+feeCols,
		memberID, year, month, paid,
	)
	f, err := scanFee(row)
	if err != nil {
		return nil, fmt.Errorf("upsert fee: %w", err)
	}
	return f, nil
}

func (s *FeeStore) GetByKey(memberID int64, year, month int) (*model.Fee, error) {
	row := s.db.QueryRow(
		`SELECT `+feeCols+` FROM fees WHERE member_id = ? AND year = ? AND month = ?`,
		memberID, year, month,
	)
	f, err := scanFee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fee: %w", err)
	}
	return f, nil
}

// ListByMember returns a member's fees for one year, ordered by month. A year
// of zero returns every year.
func (s *FeeStore) ListByMember(memberID int64, year int) ([]model.Fee, error) {
	query := `SELECT ` + feeCols + ` FROM fees WHERE member_id = ?`
	args := []any{memberID}
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY year, month`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fees: %w", err)
	}
	defer rows.Close()

	var fees []model.Fee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		fees = append(fees, *f)
	}
	return fees, rows.Err()
}

// ListByMembers loads the fees of several members in one query, keyed by
// member id. Members without fees have no entry.
func (s *FeeStore) ListByMembers(memberIDs []int64) (map[int64][]model.Fee, error) {
	byMember := make(map[int64][]model.Fee)
	if len(memberIDs) == 0 {
		return byMember, nil
	}

	placeholders := strings.Repeat("?, ", len(memberIDs)-1) + "?"
	args := make([]any, len(memberIDs))
	for i, id := range memberIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+feeCols+` FROM fees WHERE member_id IN (`+placeholders+`) ORDER BY year, month`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query fees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		byMember[f.MemberID] = append(byMember[f.MemberID], *f)
	}
	return byMember, rows.Err()
}
