package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"
)

// pageSize is the largest page the user pool admin APIs accept
const pageSize int32 = 60

// CognitoAPI is the subset of the Cognito Identity Provider client used by Cognito
type CognitoAPI interface {
	AdminGetUser(ctx context.Context, params *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cognitoidentityprovider.AdminListGroupsForUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminListGroupsForUserOutput, error)
	ListUsersInGroup(ctx context.Context, params *cognitoidentityprovider.ListUsersInGroupInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersInGroupOutput, error)
}

// Cognito reads the directory from a Cognito user pool
type Cognito struct {
	client     CognitoAPI
	userPoolID string
	logger     *zap.Logger
}

// NewCognito creates a directory backed by the given client
func NewCognito(client CognitoAPI, userPoolID string, logger *zap.Logger) *Cognito {
	return &Cognito{
		client:     client,
		userPoolID: userPoolID,
		logger:     logger,
	}
}

// NewCognitoFromRegion builds an SDK client from the default credential chain
func NewCognitoFromRegion(ctx context.Context, region, userPoolID string, logger *zap.Logger) (*Cognito, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := cognitoidentityprovider.NewFromConfig(awsCfg)
	return NewCognito(client, userPoolID, logger), nil
}

// GetUser retrieves a user by username
func (c *Cognito) GetUser(ctx context.Context, username string) (*User, error) {
	out, err := c.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return nil, c.translate(err, "AdminGetUser", username)
	}

	return &User{
		Username:   aws.ToString(out.Username),
		Attributes: flattenAttributes(out.UserAttributes),
	}, nil
}

// ListGroupsForUser lists every group the user belongs to
func (c *Cognito) ListGroupsForUser(ctx context.Context, username string) ([]string, error) {
	paginator := cognitoidentityprovider.NewAdminListGroupsForUserPaginator(c.client, &cognitoidentityprovider.AdminListGroupsForUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
		Limit:      aws.Int32(pageSize),
	})

	groups := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.translate(err, "AdminListGroupsForUser", username)
		}
		for _, g := range page.Groups {
			groups = append(groups, aws.ToString(g.GroupName))
		}
	}

	return groups, nil
}

// ListUsersInGroup lists every member of the group
func (c *Cognito) ListUsersInGroup(ctx context.Context, group string) ([]User, error) {
	paginator := cognitoidentityprovider.NewListUsersInGroupPaginator(c.client, &cognitoidentityprovider.ListUsersInGroupInput{
		UserPoolId: aws.String(c.userPoolID),
		GroupName:  aws.String(group),
		Limit:      aws.Int32(pageSize),
	})

	users := []User{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.translate(err, "ListUsersInGroup", group)
		}
		for _, u := range page.Users {
			users = append(users, User{
				Username:   aws.ToString(u.Username),
				Attributes: flattenAttributes(u.Attributes),
			})
		}
	}

	return users, nil
}

// translate maps SDK errors onto directory errors
func (c *Cognito) translate(err error, operation, target string) error {
	var notFound *types.UserNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, target)
	}

	c.logger.Warn("cognito call failed",
		zap.String("operation", operation),
		zap.String("target", target),
		zap.Error(err))
	return fmt.Errorf("cognito %s: %w", operation, err)
}

func flattenAttributes(attrs []types.AttributeType) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return out
}
