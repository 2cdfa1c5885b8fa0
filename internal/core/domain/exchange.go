package domain

// ExchangeState is the lifecycle of one send operation.
type ExchangeState int

// Exchange states.
const (
	ExchangeIdle ExchangeState = iota
	ExchangeSending
	ExchangeStreaming
	ExchangeCompleted
	ExchangeFailed
	ExchangeCancelled
)

// String returns the string representation of the state.
func (s ExchangeState) String() string {
	switch s {
	case ExchangeIdle:
		return "idle"
	case ExchangeSending:
		return "sending"
	case ExchangeStreaming:
		return "streaming"
	case ExchangeCompleted:
		return "completed"
	case ExchangeFailed:
		return "failed"
	case ExchangeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the exchange can no longer mutate the log.
func (s ExchangeState) IsTerminal() bool {
	return s == ExchangeCompleted || s == ExchangeFailed || s == ExchangeCancelled
}

// ExchangeResult describes how a send operation ended.
type ExchangeResult struct {
	// UserMessageID is the ID of the submitted turn.
	UserMessageID string

	// PlaceholderID is the ID of the assistant placeholder created for the response.
	PlaceholderID string

	// ErrorMessageID is the ID of the synthetic error turn, set only when State is failed.
	ErrorMessageID string

	// State is the final state.
	State ExchangeState

	// Err is the failure cause, set when State is failed or cancelled.
	Err error
}
