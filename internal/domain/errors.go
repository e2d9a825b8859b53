package domain

import "errors"

// Typed outcomes shared across the repository and service layers.
// These are expected results of racing operations, not failures: a lost
// claim is ErrClaimConflict, an append to a finished conversation is
// ErrConversationEnded. Handlers map them to response codes.
var (
	// ErrNotFound means the referenced conversation, tenant or agent
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClaimConflict means another agent won the claim race; the
	// caller should refresh its queue view.
	ErrClaimConflict = errors.New("conversation already claimed")

	// ErrNotWaiting means an operation that is only legal from WAITING
	// (decline) found the conversation in another state.
	ErrNotWaiting = errors.New("conversation is not waiting")

	// ErrInvalidTransition means the requested status change is not
	// permitted by the lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConversationEnded means the conversation is terminal and its
	// log can no longer be appended to.
	ErrConversationEnded = errors.New("conversation has ended")

	// ErrAgentOffline means the claiming agent has no live presence
	// entry and may not take conversations until it comes online.
	ErrAgentOffline = errors.New("agent is offline")

	// ErrNoAgentsAvailable means the tenant has no agent accounts
	// provisioned, so a conversation cannot be opened for it.
	ErrNoAgentsAvailable = errors.New("no agents available for tenant")

	// ErrInvalidArgument means a required field was missing or invalid.
	ErrInvalidArgument = errors.New("invalid argument")
)
