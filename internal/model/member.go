package model

import "time"

type Member struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"adminId"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	Birth     string    `json:"birth"`
	Phone     string    `json:"phone"`
	Level     string    `json:"level"`
	Carnumber string    `json:"carnumber"`
	Note      string    `json:"note"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Fees      []Fee     `json:"fees"`
}

// MemberInput holds the editable descriptive fields of a member.
type MemberInput struct {
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Birth     string `json:"birth"`
	Phone     string `json:"phone"`
	Level     string `json:"level"`
	Carnumber string `json:"carnumber"`
	Note      string `json:"note"`
}

// Fee is one member's payment status for a single calendar month.
type Fee struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"memberId"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Paid      bool      `json:"paid"`
	UpdatedAt time.Time `json:"updatedAt"`
}
