// Package domain defines the core entities of the docchat client.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded asset and its processing lifecycle
//   - Message: One conversation turn (UserMessage or AssistantMessage)
//   - Frame: One decoded unit of a chat response stream
//   - Notification: A user-visible event raised by a controller
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
