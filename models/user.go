package models

// Group names with meaning to the people endpoints
const (
	GroupJury      = "jury"
	GroupProposers = "proposers"
)

// MaxBulkUsers caps the number of ids accepted by one bulk lookup
const MaxBulkUsers = 100

// User is the full record of a directory user as returned by the internal endpoints
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Groups []string `json:"groups"`
}

// UserBasic is the public projection used in member lists
type UserBasic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewUser builds a record, substituting the id for a missing name
func NewUser(id, name, email string, groups []string) *User {
	if name == "" {
		name = id
	}
	if groups == nil {
		groups = []string{}
	}
	return &User{
		ID:     id,
		Name:   name,
		Email:  email,
		Groups: groups,
	}
}

// BulkUsersRequest is the body of a bulk user lookup
type BulkUsersRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=100,dive,required"`
}
