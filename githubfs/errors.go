package githubfs

import "errors"

var (
	// ErrNotFound is returned when the requested path does not exist on the
	// configured branch.
	ErrNotFound = errors.New("githubfs: not found")

	// ErrConflict is returned when a write is rejected because the supplied
	// SHA is stale, or a create targets a path that already exists.
	ErrConflict = errors.New("githubfs: conflict")

	// ErrRateLimited is returned on a 403 with zero remaining API quota, so
	// callers can back off instead of treating it as an authorization failure.
	ErrRateLimited = errors.New("githubfs: rate limited")

	// ErrIsDirectory is returned when a file operation addresses a directory.
	ErrIsDirectory = errors.New("githubfs: path is a directory")

	// ErrNotDirectory is returned when a listing addresses a regular file.
	ErrNotDirectory = errors.New("githubfs: path is not a directory")

	// ErrTimeout is returned when a request exceeds the client timeout.
	// It is retryable; the write may or may not have landed.
	ErrTimeout = errors.New("githubfs: request timed out")
)

// APIError carries the normalized status and message of an unexpected
// response from the contents API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return "githubfs: api error " + e.Message
}
