package store

import (
	"database/sql"
	"fmt"

	"github.com/birdieclub/birdie/internal/model"
)

type MemberStore struct {
	db   *sql.DB
	fees *FeeStore
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db, fees: NewFeeStore(db)}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(
		&m.ID, &m.AdminID, &m.Name, &m.Gender, &m.Birth, &m.Phone, &m.Level,
		&m.Carnumber, &m.Note, &m.Deleted, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Fees = []model.Fee{}
	return &m, nil
}

const memberCols = `id, admin_id, name, gender, birth, phone, level, carnumber, note, deleted, created_at, updated_at`

func (s *MemberStore) Create(adminID int64, in model.MemberInput) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (admin_id, name, gender, birth, phone, level, carnumber, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		adminID, in.Name, in.Gender, in.Birth, in.Phone, in.Level, in.Carnumber, in.Note,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID returns the member with its fees, or nil if it does not exist.
func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}

	fees, err := s.fees.ListByMember(id, 0)
	if err != nil {
		return nil, err
	}
	if fees != nil {
		m.Fees = fees
	}
	return m, nil
}

// ListByAdmin returns every member owned by adminID, soft-deleted ones
// included, newest first. Each member carries all of its fee records.
func (s *MemberStore) ListByAdmin(adminID int64) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members WHERE admin_id = ? ORDER BY id DESC`,
		adminID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	fees, err := s.fees.ListByMembers(ids)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if f := fees[members[i].ID]; f != nil {
			members[i].Fees = f
		}
	}
	return members, nil
}

func (s *MemberStore) Update(id int64, in model.MemberInput) (*model.Member, error) {
	_, err := s.db.Exec(
		`UPDATE members SET name = ?, gender = ?, birth = ?, phone = ?, level = ?,
		 carnumber = ?, note = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		in.Name, in.Gender, in.Birth, in.Phone, in.Level, in.Carnumber, in.Note, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(id)
}

// SetDeleted soft-deletes (true) or restores (false) a member. Fees are kept
// either way.
func (s *MemberStore) SetDeleted(id int64, deleted bool) error {
	_, err := s.db.Exec(
		`UPDATE members SET deleted = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		deleted, id,
	)
	if err != nil {
		return fmt.Errorf("set member deleted: %w", err)
	}
	return nil
}

// Delete removes the member permanently. Its fees go with it via ON DELETE CASCADE.
func (s *MemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}
