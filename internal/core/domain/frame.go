package domain

// FrameKind distinguishes the units of a chat response stream.
type FrameKind int

// Frame kinds.
const (
	// FrameToken carries a content delta.
	FrameToken FrameKind = iota
	// FrameDone marks the end of the response.
	FrameDone
	// FrameError carries a server-side failure for the whole exchange.
	FrameError
)

// String returns the string representation of the frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameToken:
		return "token"
	case FrameDone:
		return "done"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is one decoded unit of a chat response stream.
// Frames are transient: produced in arrival order and consumed once.
type Frame struct {
	Kind FrameKind

	// Token is the content delta for FrameToken.
	Token string

	// Err is the failure reason for FrameError.
	Err string
}

// TokenFrame builds a content delta frame.
func TokenFrame(token string) Frame {
	return Frame{Kind: FrameToken, Token: token}
}

// DoneFrame builds the terminal marker frame.
func DoneFrame() Frame {
	return Frame{Kind: FrameDone}
}

// ErrorFrame builds a structured error frame.
func ErrorFrame(reason string) Frame {
	return Frame{Kind: FrameError, Err: reason}
}
