package contacts

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrConnectionNotFound = errors.New("contact request not found")
	ErrConflict           = errors.New("contact request already exists")
	ErrSelfRequest        = errors.New("cannot send a contact request to yourself")
	ErrInvalidPolicy      = errors.New("invalid contact policy")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrInvalidName        = errors.New("name is required")
)
