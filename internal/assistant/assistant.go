package assistant

import "errors"

var (
	// ErrUnconfigured means no API credentials were supplied.
	ErrUnconfigured = errors.New("assistant is not configured")

	// ErrUnreachable covers network failures and timeouts.
	ErrUnreachable = errors.New("assistant is unreachable")

	// ErrBadResponse means the API answered with an unusable payload.
	ErrBadResponse = errors.New("assistant returned a bad response")
)

// Assistant answers a free-text question with a short advisory text.
// One attempt, bounded timeout, typed failure — the caller maps failures to
// user-facing apology strings and lets the user re-ask.
type Assistant interface {
	Ask(question string) (string, error)
}
