// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ChatBackend: Chat history and streamed replies
//   - DocumentBackend: Document listing, status, upload, download, deletion
//   - FrameStream: A cancellable sequence of decoded response frames
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Notifier: User-visible notifications. Without it, notifications are only logged.
//   - TokenProvider: Bearer tokens. Without it, requests are sent unauthenticated.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
