// internal/hub/errors.go
package hub

import (
	"errors"

	"github.com/mfjones/chatter/internal/store"
)

// Error taxonomy for inbound event handling. Terminal errors are reported to
// the originating connection only, as a single "error" event; transient
// failures on primary mutations abort the operation the same way. Transient
// failures on side effects (last-seen write-through) are logged and swallowed.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotAMember   = errors.New("not a member of this room")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTransient    = errors.New("temporary failure")
)

// errorMessage maps a handler error to the client-facing error payload text.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotAMember):
		return "Not a member of this room"
	case errors.Is(err, ErrForbidden):
		return "Not allowed"
	case errors.Is(err, ErrNotFound), errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrInvalidInput):
		return "Invalid request"
	default:
		return "Something went wrong, try again"
	}
}
