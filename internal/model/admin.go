package model

import "time"

// DefaultCustom1Label is the column header used for Member.Carnumber until the
// admin picks their own.
const DefaultCustom1Label = "Car number"

type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Custom1Label string    `json:"custom1Label"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
