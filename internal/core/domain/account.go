package domain

import "time"

// Account models an identity that can sign in to the back office.
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"fullName"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
