// Package observability builds the zap logger used across the people service
// and carries request ids from chi's RequestID middleware into log fields.
package observability
