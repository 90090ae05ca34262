// Package sharing decides whether a file owner may grant another user read
// access to a file, and records the grant.
//
// ShareFile does not open transactions itself. Callers pass a Repository bound
// to an open transaction; LockOwnedFile must lock the file row until that
// transaction ends so concurrent shares of one file are serialized and the
// already-shared check cannot be raced.
package sharing

import (
	"context"
	"errors"
	"fmt"

	"fileshare/internal/models"
)

var (
	ErrSelfShare           = errors.New("you cannot share a file with yourself")
	ErrRecipientNotFound   = errors.New("invalid recipient")
	ErrNotFoundOrForbidden = errors.New("file not found or you do not have permission to share it")
	ErrAlreadyShared       = errors.New("this file has already been shared with the recipient")
)

type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// LockOwnedFile returns nil, nil when no file with fileID is owned by ownerID.
	LockOwnedFile(ctx context.Context, fileID, ownerID int64) (*models.File, error)
	IsAllowedUser(ctx context.Context, fileID, userID int64) (bool, error)
	// AddAllowedUser reports false when the pair was already present.
	AddAllowedUser(ctx context.Context, fileID, userID int64) (bool, error)
}

type Request struct {
	RequesterID int64
	FileID      int64
	RecipientID int64
}

// Grant describes a successful share.
type Grant struct {
	File      *models.File
	Recipient *models.User
}

func ShareFile(ctx context.Context, repo Repository, req Request) (*Grant, error) {
	if req.RecipientID == req.RequesterID {
		return nil, ErrSelfShare
	}

	recipient, err := repo.GetUserByID(ctx, req.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("lookup recipient %d: %w", req.RecipientID, err)
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	file, err := repo.LockOwnedFile(ctx, req.FileID, req.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("lookup file %d: %w", req.FileID, err)
	}
	if file == nil {
		return nil, ErrNotFoundOrForbidden
	}

	shared, err := repo.IsAllowedUser(ctx, file.ID, recipient.ID)
	if err != nil {
		return nil, fmt.Errorf("check allowed users of file %d: %w", file.ID, err)
	}
	if shared {
		return nil, ErrAlreadyShared
	}

	inserted, err := repo.AddAllowedUser(ctx, file.ID, recipient.ID)
	if err != nil {
		return nil, fmt.Errorf("add allowed user to file %d: %w", file.ID, err)
	}
	if !inserted {
		return nil, ErrAlreadyShared
	}

	file.AllowedUsers = append(file.AllowedUsers, recipient.ID)
	return &Grant{File: file, Recipient: recipient}, nil
}

// IsClientError reports whether err is one of the validation failures above.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSelfShare) ||
		errors.Is(err, ErrRecipientNotFound) ||
		errors.Is(err, ErrNotFoundOrForbidden) ||
		errors.Is(err, ErrAlreadyShared)
}
