// Package backend implements the chat and document driven ports against the
// document analysis REST API.
//
// JSON endpoints go through a client bounded by the configured timeout. The
// chat stream, uploads and downloads use a client bounded only by the
// caller's context. Both share one middleware chain: request logging, bearer
// authentication and client-side rate limiting.
package backend
