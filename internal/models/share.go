package models

import "time"

// Share is a single row of a file's allowed-users set.
type Share struct {
	FileID      int64     `json:"file_id"`
	OwnerID     int64     `json:"owner_id"`
	RecipientID int64     `json:"recipient_id"`
	SharedAt    time.Time `json:"shared_at"`
}
