package people

import (
	"context"
	"errors"

	"github.com/upb/people-service/directory"
	"github.com/upb/people-service/models"
	"github.com/upb/people-service/services"
	"go.uber.org/zap"
)

// PeopleService answers who a caller is allowed to be and reads user records from the directory
type PeopleService struct {
	dir    directory.Directory
	logger *zap.Logger
}

// NewPeopleService creates a new PeopleService instance
func NewPeopleService(dir directory.Directory, logger *zap.Logger) *PeopleService {
	return &PeopleService{
		dir:    dir,
		logger: logger,
	}
}

// ResolveGroups returns the subject's current groups from the directory.
// Any failure, including an unknown subject, is reported as an unauthorized
// error so callers cannot tell the cases apart.
func (s *PeopleService) ResolveGroups(ctx context.Context, subject string) ([]string, error) {
	groups, err := s.dir.ListGroupsForUser(ctx, subject)
	if err != nil {
		s.logger.Warn("failed to resolve caller groups",
			zap.String("subject", subject),
			zap.Error(err))
		return nil, services.NewSubjectUnresolvableError(err)
	}
	return groups, nil
}

// RequireGroup checks membership with an exact, case-sensitive match
func (s *PeopleService) RequireGroup(groups []string, required string) error {
	return RequireGroup(groups, required)
}

// RequireGroup is the pure membership check behind PeopleService.RequireGroup
func RequireGroup(groups []string, required string) error {
	for _, g := range groups {
		if g == required {
			return nil
		}
	}
	return services.NewForbiddenError(required)
}

// FetchUserRecord assembles the full record of one user
func (s *PeopleService) FetchUserRecord(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.dir.GetUser(ctx, userID)
	if err != nil {
		return nil, s.lookupError(userID, "failed to fetch user", err)
	}

	groups, err := s.dir.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, s.lookupError(userID, "failed to fetch user groups", err)
	}

	// The directory accepts aliases such as an email; the record carries the canonical username
	id := user.Username
	if id == "" {
		id = userID
	}

	return models.NewUser(
		id,
		user.Attribute(directory.AttributeName),
		user.Attribute(directory.AttributeEmail),
		groups,
	), nil
}

// ListJuryMembers lists the jury group in directory order
func (s *PeopleService) ListJuryMembers(ctx context.Context) ([]models.UserBasic, error) {
	users, err := s.dir.ListUsersInGroup(ctx, models.GroupJury)
	if err != nil {
		s.logger.Error("failed to list jury members", zap.Error(err))
		return nil, services.WrapInternal("failed to list jury members", err)
	}

	members := make([]models.UserBasic, 0, len(users))
	for i := range users {
		name := users[i].Attribute(directory.AttributeName)
		if name == "" {
			name = users[i].Username
		}
		members = append(members, models.UserBasic{ID: users[i].Username, Name: name})
	}
	return members, nil
}

// GetUser returns one user record
func (s *PeopleService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.FetchUserRecord(ctx, userID)
}

// BulkGetUsers fetches records in input order, one at a time. The first
// failure stops the lookup; the returned error names the failing id and no
// later id is requested.
func (s *PeopleService) BulkGetUsers(ctx context.Context, userIDs []string) ([]models.User, error) {
	users := make([]models.User, 0, len(userIDs))
	for _, id := range userIDs {
		user, err := s.FetchUserRecord(ctx, id)
		if err != nil {
			s.logger.Warn("bulk user lookup stopped",
				zap.String("user_id", id),
				zap.Int("fetched", len(users)),
				zap.Int("requested", len(userIDs)))
			return nil, services.WrapInternal("failed to fetch user", err).WithDetail("user_id", id)
		}
		users = append(users, *user)
	}
	return users, nil
}

func (s *PeopleService) lookupError(userID, message string, err error) error {
	if errors.Is(err, directory.ErrUserNotFound) {
		return services.NewUserNotFoundError(userID, err)
	}
	s.logger.Error(message, zap.String("user_id", userID), zap.Error(err))
	return services.WrapInternal(message, err).WithDetail("user_id", userID)
}
