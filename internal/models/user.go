package models

import "time"

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	Slug         string    `json:"slug" db:"slug"`
	IsDisabled   bool      `json:"is_disable" db:"is_disabled"`
	Bio          string    `json:"bio" db:"bio"`
	AvatarKey    *string   `json:"avatar" db:"avatar_key"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
