package database

import (
	"context"
	"errors"
	"fileshare/internal/models"
	"strings"

	"github.com/jackc/pgx/v5"
)

var (
	ErrUsernameTaken = errors.New("a user with that username already exists")
	ErrEmailTaken    = errors.New("a user with that email already exists")
	ErrUserNotFound  = errors.New("user not found")
)

const userColumns = `id, username, email, slug, password_hash, is_disabled, bio, avatar_key, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Slug,
		&user.PasswordHash,
		&user.IsDisabled,
		&user.Bio,
		&user.AvatarKey,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// userLookup returns nil, nil when no row matched.
func userLookup(row pgx.Row) (*models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func translateUserErr(err error) error {
	code, constraint := pgErrorCode(err)
	if code != pgUniqueViolation {
		return err
	}
	switch constraint {
	case "users_username_key":
		return ErrUsernameTaken
	case "users_email_key":
		return ErrEmailTaken
	}
	return err
}

type CreateUserParams struct {
	Username     string
	Email        string
	Slug         string
	PasswordHash string
	Bio          string
	AvatarKey    *string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, slug, password_hash, bio, avatar_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	row := q.db.QueryRow(ctx, query, arg.Username, arg.Email, arg.Slug, arg.PasswordHash, arg.Bio, arg.AvatarKey)

	user, err := scanUser(row)
	if err != nil {
		return nil, translateUserErr(err)
	}
	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return userLookup(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return userLookup(q.db.QueryRow(ctx, query, username))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return userLookup(q.db.QueryRow(ctx, query, email))
}

// LockUser reads a user and locks the row until the surrounding transaction
// ends, so read-modify-write profile updates do not interleave.
func (q *Queries) LockUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return userLookup(q.db.QueryRow(ctx, query, id))
}

// UpdateUserParams holds a partial profile update; nil fields keep their value.
type UpdateUserParams struct {
	Username  *string
	Email     *string
	Slug      *string
	Bio       *string
	AvatarKey *string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, id int64, arg UpdateUserParams) (*models.User, error) {
	query := `
		UPDATE users
		SET
			username   = COALESCE($2, username),
			email      = COALESCE($3, email),
			slug       = COALESCE($4, slug),
			bio        = COALESCE($5, bio),
			avatar_key = COALESCE($6, avatar_key)
		WHERE id = $1
		RETURNING ` + userColumns
	row := q.db.QueryRow(ctx, query, id, arg.Username, arg.Email, arg.Slug, arg.Bio, arg.AvatarKey)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, translateUserErr(err)
	}
	return user, nil
}

// SearchUsersByUsername matches term anywhere in the username, ignoring case.
func (q *Queries) SearchUsersByUsername(ctx context.Context, term string, limit int) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE '%' || $1 || '%' ESCAPE '\' AND NOT is_disabled
		ORDER BY username
		LIMIT $2
	`
	rows, err := q.db.Query(ctx, query, escapeLike(term), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if users == nil {
		return []models.User{}, nil
	}

	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
