// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered blog author.
//
// Identity is a surrogate integer (ID) assigned by the store. Username is
// always stored lowercase and is unique; Email is optional but unique when set.
//
// PasswordHash holds the full bcrypt output (salt and cost included). It is
// tagged `json:"-"` so it can never leak into an API response. Accounts created
// through GitHub sign-in have an empty hash and cannot log in with a password.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	BgColor      string    `json:"bgColor"`
	Bio          string    `json:"bio"`
	GitHubID     int64     `json:"githubId,omitempty"` // 0 when not linked
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is what anyone may see about a user: no email, no linked
// GitHub account.
type PublicUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	BgColor   string    `json:"bgColor"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		BgColor:   u.BgColor,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
}
