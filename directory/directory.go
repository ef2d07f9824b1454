// Package directory reads users and group memberships from the user pool.
//
// Callers depend on the Directory interface. Cognito talks to the managed
// user pool through the AWS SDK; Memory holds users in process and is used
// wherever a real pool is not available.
package directory

import (
	"context"
	"errors"
)

// Standard attribute names returned by the user pool
const (
	AttributeSub   = "sub"
	AttributeName  = "name"
	AttributeEmail = "email"
)

// ErrUserNotFound is returned when the directory has no user with the given username
var ErrUserNotFound = errors.New("user not found in directory")

// User is a directory entry with its attributes flattened into a map
type User struct {
	Username   string
	Attributes map[string]string
}

// Attribute returns the named attribute or "" when absent
func (u *User) Attribute(name string) string {
	if u == nil || u.Attributes == nil {
		return ""
	}
	return u.Attributes[name]
}

// Directory is the read side of the user pool
type Directory interface {
	// GetUser returns the user or ErrUserNotFound
	GetUser(ctx context.Context, username string) (*User, error)

	// ListGroupsForUser returns group names in directory order
	ListGroupsForUser(ctx context.Context, username string) ([]string, error)

	// ListUsersInGroup returns the members of a group in directory order
	ListUsersInGroup(ctx context.Context, group string) ([]User, error)
}
