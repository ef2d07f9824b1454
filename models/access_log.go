package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessDecision is the outcome of an authorization check
type AccessDecision string

const (
	AccessAllowed AccessDecision = "allowed"
	AccessDenied  AccessDecision = "denied"
)

// AccessLog records one authorization decision on a protected route
type AccessLog struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	RequestID  string         `json:"request_id" db:"request_id"`
	Subject    string         `json:"subject" db:"subject"` // directory username, empty when the token was rejected
	Method     string         `json:"method" db:"method"`
	Route      string         `json:"route" db:"route"`
	Group      string         `json:"required_group,omitempty" db:"required_group"`
	Decision   AccessDecision `json:"decision" db:"decision"`
	Reason     string         `json:"reason,omitempty" db:"reason"`
	StatusCode int            `json:"status_code" db:"status_code"`
	IPAddress  string         `json:"ip_address" db:"ip_address"`
	UserAgent  string         `json:"user_agent" db:"user_agent"`
	Timestamp  time.Time      `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AccessLog model
func (AccessLog) TableName() string {
	return "access_logs"
}

// NewAccessLog creates an entry for the given route
func NewAccessLog(method, route string) *AccessLog {
	return &AccessLog{
		ID:        uuid.New(),
		Method:    method,
		Route:     route,
		Timestamp: time.Now().UTC(),
	}
}

// WithRequest sets request metadata
func (a *AccessLog) WithRequest(requestID, ipAddress, userAgent string) *AccessLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// WithSubject sets the caller and the group that was required
func (a *AccessLog) WithSubject(subject, group string) *AccessLog {
	a.Subject = subject
	a.Group = group
	return a
}

// Allow marks the entry as allowed
func (a *AccessLog) Allow() *AccessLog {
	a.Decision = AccessAllowed
	a.StatusCode = 200
	return a
}

// Deny marks the entry as denied with the response status and reason code
func (a *AccessLog) Deny(statusCode int, reason string) *AccessLog {
	a.Decision = AccessDenied
	a.StatusCode = statusCode
	a.Reason = reason
	return a
}
