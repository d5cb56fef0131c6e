package store

import (
	"database/sql"
	"fmt"

	"github.com/birdieclub/birdie/internal/model"
)

type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

func scanAdmin(scanner interface{ Scan(...any) error }) (*model.Admin, error) {
	var a model.Admin
	err := scanner.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Custom1Label, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const adminCols = `id, username, password_hash, custom1_label, created_at, updated_at`

// Create inserts an admin. An empty label falls back to model.DefaultCustom1Label.
func (s *AdminStore) Create(username, passwordHash, custom1Label string) (*model.Admin, error) {
	if custom1Label == "" {
		custom1Label = model.DefaultCustom1Label
	}
	result, err := s.db.Exec(
		`INSERT INTO admins (username, password_hash, custom1_label) VALUES (?, ?, ?)`,
		username, passwordHash, custom1Label,
	)
	if err != nil {
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AdminStore) GetByID(id int64) (*model.Admin, error) {
	row := s.db.QueryRow(`SELECT `+adminCols+` FROM admins WHERE id = ?`, id)
	a, err := scanAdmin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

func (s *AdminStore) GetByUsername(username string) (*model.Admin, error) {
	row := s.db.QueryRow(`SELECT `+adminCols+` FROM admins WHERE username = ?`, username)
	a, err := scanAdmin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return a, nil
}

func (s *AdminStore) UpdatePassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE admins SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return nil
}

func (s *AdminStore) UpdateCustom1Label(id int64, label string) (*model.Admin, error) {
	_, err := s.db.Exec(
		`UPDATE admins SET custom1_label = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		label, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update custom1 label: %w", err)
	}
	return s.GetByID(id)
}

func (s *AdminStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
