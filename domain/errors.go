package domain

import "errors"

// Error taxonomy for the mutation entry points. Callers distinguish
// permission and validation failures from generic store failures so the
// UI can react (re-authenticate vs. generic notification).
var (
	// ErrInvalidArgument indicates a missing or malformed identifier,
	// raised before any network call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied indicates the caller is not allowed to delete
	// a registered-user contact other than their own account.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound indicates a referenced document does not exist. Deletes
	// of already-absent documents treat this as a no-op instead.
	ErrNotFound = errors.New("not found")

	// ErrWriteFailed indicates the underlying store rejected a read,
	// write or batch commit.
	ErrWriteFailed = errors.New("write failed")
)
