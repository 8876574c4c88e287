package service

import (
	"errors"

	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/syncer"
	"github.com/templui/fitsync/internal/validation"
)

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrLoginFailed     = errors.New("sign-in failed")
	ErrInvalidToken    = errors.New("invalid access token")
	ErrNameTaken       = errors.New("name already in use")
)

// Message maps an error to the single line shown to the user.
func Message(err error) string {
	var verr *validation.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return "Please check " + verr.Field + ": " + verr.Message + "."
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in to continue."
	case errors.Is(err, ErrInvalidToken):
		return "Your sign-in link is invalid or has expired."
	case errors.Is(err, ErrLoginFailed):
		return "Could not load your data. Check your connection and try again."
	case errors.Is(err, syncer.ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, syncer.ErrSyncUnavailable):
		return "Sync is unavailable right now. Your changes are saved on this device."
	case errors.Is(err, ErrNameTaken):
		return "That name is already in use."
	case errors.Is(err, repository.ErrNotFound):
		return "That item no longer exists."
	case errors.Is(err, repository.ErrDuplicateIdentifier):
		return "That item already exists."
	}
	return "Something went wrong. Please try again."
}
