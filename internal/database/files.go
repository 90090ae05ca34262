package database

import (
	"context"
	"errors"
	"fileshare/internal/models"

	"github.com/jackc/pgx/v5"
)

var ErrFileNotFound = errors.New("file not found or user is not the owner")

// fileSelect yields one row per file with its allowed users aggregated.
const fileSelect = `
	SELECT
		f.id, f.owner_id, f.storage_key, f.name, f.size_bytes, f.mime_type, f.created_at,
		COALESCE(
			array_agg(a.user_id ORDER BY a.user_id) FILTER (WHERE a.user_id IS NOT NULL),
			'{}'
		) AS allowed_users
	FROM files f
	LEFT JOIN file_allowed_users a ON a.file_id = f.id
`

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.StorageKey,
		&file.Name,
		&file.SizeBytes,
		&file.MimeType,
		&file.CreatedAt,
		&file.AllowedUsers,
	)
	if err != nil {
		return nil, err
	}
	if file.AllowedUsers == nil {
		file.AllowedUsers = []int64{}
	}
	return &file, nil
}

func collectFiles(rows pgx.Rows) ([]models.File, error) {
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if files == nil {
		return []models.File{}, nil
	}

	return files, nil
}

type CreateFileParams struct {
	OwnerID    int64
	StorageKey string
	Name       string
	SizeBytes  int64
	MimeType   *string
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (*models.File, error) {
	query := `
		INSERT INTO files (owner_id, storage_key, name, size_bytes, mime_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_id, storage_key, name, size_bytes, mime_type, created_at
	`
	var file models.File
	err := q.db.QueryRow(ctx, query, arg.OwnerID, arg.StorageKey, arg.Name, arg.SizeBytes, arg.MimeType).Scan(
		&file.ID,
		&file.OwnerID,
		&file.StorageKey,
		&file.Name,
		&file.SizeBytes,
		&file.MimeType,
		&file.CreatedAt,
	)
	if err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	file.AllowedUsers = []int64{}
	return &file, nil
}

func (q *Queries) ListFilesByOwner(ctx context.Context, ownerID int64, limit int, offset int) ([]models.File, error) {
	query := fileSelect + `
		WHERE f.owner_id = $1
		GROUP BY f.id
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectFiles(rows)
}

func (q *Queries) ListFilesSharedWith(ctx context.Context, userID int64, limit int, offset int) ([]models.File, error) {
	query := fileSelect + `
		WHERE f.id IN (SELECT file_id FROM file_allowed_users WHERE user_id = $1)
		GROUP BY f.id
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectFiles(rows)
}

// GetFileIfAccessible returns the file when userID owns it or is one of its
// allowed users, nil otherwise.
func (q *Queries) GetFileIfAccessible(ctx context.Context, fileID int64, userID int64) (*models.File, error) {
	query := fileSelect + `
		WHERE f.id = $1 AND (
			f.owner_id = $2
			OR EXISTS (SELECT 1 FROM file_allowed_users x WHERE x.file_id = f.id AND x.user_id = $2)
		)
		GROUP BY f.id
	`
	file, err := scanFile(q.db.QueryRow(ctx, query, fileID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

// DeleteFile removes a file owned by ownerID together with its allowed-users
// rows and returns what was deleted. The blob is left for the caller.
func (q *Queries) DeleteFile(ctx context.Context, fileID int64, ownerID int64) (*models.File, error) {
	file, err := q.LockOwnedFile(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrFileNotFound
	}

	allowed, err := q.ListAllowedUsers(ctx, fileID)
	if err != nil {
		return nil, err
	}
	file.AllowedUsers = allowed

	if _, err := q.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, fileID); err != nil {
		return nil, err
	}
	return file, nil
}
