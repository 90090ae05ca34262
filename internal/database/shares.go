package database

import (
	"context"
	"errors"
	"fileshare/internal/models"

	"github.com/jackc/pgx/v5"
)

// LockOwnedFile selects a file owned by ownerID with a row lock held until the
// surrounding transaction ends. It returns nil, nil when there is no such file.
// Outside a transaction the lock is released immediately.
func (q *Queries) LockOwnedFile(ctx context.Context, fileID int64, ownerID int64) (*models.File, error) {
	query := `
		SELECT id, owner_id, storage_key, name, size_bytes, mime_type, created_at
		FROM files
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`
	var file models.File
	err := q.db.QueryRow(ctx, query, fileID, ownerID).Scan(
		&file.ID,
		&file.OwnerID,
		&file.StorageKey,
		&file.Name,
		&file.SizeBytes,
		&file.MimeType,
		&file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

func (q *Queries) IsAllowedUser(ctx context.Context, fileID int64, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM file_allowed_users WHERE file_id = $1 AND user_id = $2)`
	var allowed bool
	err := q.db.QueryRow(ctx, query, fileID, userID).Scan(&allowed)
	return allowed, err
}

// AddAllowedUser inserts the pair and reports whether a new row was created.
func (q *Queries) AddAllowedUser(ctx context.Context, fileID int64, userID int64) (bool, error) {
	query := `
		INSERT INTO file_allowed_users (file_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (file_id, user_id) DO NOTHING
	`
	res, err := q.db.Exec(ctx, query, fileID, userID)
	if err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) ListAllowedUsers(ctx context.Context, fileID int64) ([]int64, error) {
	query := `SELECT user_id FROM file_allowed_users WHERE file_id = $1 ORDER BY user_id`
	rows, err := q.db.Query(ctx, query, fileID)
	if err != nil {
		return nil, err
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		return []int64{}, nil
	}
	return ids, nil
}

type OutgoingShare struct {
	models.Share
	FileName          string `json:"file_name"`
	RecipientUsername string `json:"recipient_username"`
}

func (q *Queries) ListOutgoingShares(ctx context.Context, ownerID int64, limit int, offset int) ([]OutgoingShare, error) {
	query := `
		SELECT
			a.file_id, f.owner_id, a.user_id, a.shared_at,
			f.name AS file_name,
			u.username AS recipient_username
		FROM file_allowed_users a
		JOIN files f ON a.file_id = f.id
		JOIN users u ON a.user_id = u.id
		WHERE f.owner_id = $1
		ORDER BY a.shared_at DESC, a.file_id, a.user_id
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []OutgoingShare
	for rows.Next() {
		var share OutgoingShare
		err := rows.Scan(
			&share.FileID, &share.OwnerID, &share.RecipientID, &share.SharedAt,
			&share.FileName, &share.RecipientUsername,
		)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if shares == nil {
		return []OutgoingShare{}, nil
	}

	return shares, nil
}
