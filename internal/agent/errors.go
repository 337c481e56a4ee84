package agent

import (
	"errors"
	"fmt"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

// ErrTurnInProgress is returned when Act is called while a previous request
// is still running.
var ErrTurnInProgress = errors.New("a request is already being processed")

// ErrConversationDesync is returned when the transcript ends in a position the
// model cannot be queried from: the last message must carry role user or tool.
var ErrConversationDesync = errors.New("conversation desync: last message must have role user or tool")

// MalformedStreamError reports a protocol violation in the model's streamed
// response: a tool-call fragment without an index, non-contiguous indexes, or
// a stream that ended without a usage report.
type MalformedStreamError struct {
	Reason string
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("malformed response stream: %s", e.Reason)
}

// RecoveryHint translates an error into a short user-facing suggestion, or ""
// when there is nothing actionable.
func RecoveryHint(err error) string {
	var streamErr *MalformedStreamError
	if errors.As(err, &streamErr) {
		return "The provider returned a malformed response. Retrying usually helps."
	}

	switch models.CodeOf(err) {
	case models.ErrorCodeAuth:
		return "Check the API key environment variable named in the provider config."
	case models.ErrorCodeRateLimit:
		return "The provider is rate limiting. Wait a moment and retry."
	case models.ErrorCodeContextTooLong:
		return "The conversation no longer fits the model context. Run /compact or /clear; retrying will not help."
	case models.ErrorCodeConnection:
		return "Could not reach the provider. Check the network and base URL."
	}
	return ""
}
