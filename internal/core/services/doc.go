// Package services implements the driving port interfaces.
// Services contain the client's business logic: the message log of a
// conversation, the document collection and its status poller, settings
// and authentication. They orchestrate calls to driven ports (adapters).
package services
