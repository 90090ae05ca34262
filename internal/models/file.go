package models

import "time"

// File is an uploaded blob owned by exactly one user. AllowedUsers holds the
// ids of users, other than the owner, that were granted read access.
type File struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner"`
	StorageKey   string    `json:"-"`
	Name         string    `json:"name"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     *string   `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
	AllowedUsers []int64   `json:"allowed_users"`
}
