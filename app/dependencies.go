package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/people-service/cognito"
	"github.com/upb/people-service/config"
	"github.com/upb/people-service/directory"
	"github.com/upb/people-service/middleware"
	"github.com/upb/people-service/repositories"
	"github.com/upb/people-service/repositories/postgres"
	"github.com/upb/people-service/services/audit"
	"github.com/upb/people-service/services/people"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for queued access logs
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when DATABASE_URL is not set
	Logger *zap.Logger

	// Identity
	Directory directory.Directory
	Validator middleware.TokenValidator

	// Repositories
	AccessLogs repositories.AccessLogRepository

	// Services
	People *people.PeopleService
	Audit  *audit.AccessAuditService

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// Options overrides the externally backed components. Zero fields are built
// from configuration.
type Options struct {
	Directory      directory.Directory
	TokenValidator middleware.TokenValidator
}

// NewDependencies creates and wires up all application dependencies from configuration
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	return NewDependenciesWithOptions(ctx, cfg, logger, Options{})
}

// NewDependenciesWithOptions wires dependencies, using opts in place of the
// Cognito-backed directory and token validator when set
func NewDependenciesWithOptions(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Directory: opts.Directory,
		Validator: opts.TokenValidator,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initDirectory(ctx, cfg); err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize directory: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the access log store when one is configured
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Info("no database configured, access decisions go to the log only")
		return nil
	}

	db, err := postgres.NewDB(*cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.DB = db
	d.AccessLogs = postgres.NewAccessLogRepository(db, d.Logger)
	return nil
}

// initDirectory builds the Cognito directory client unless one was injected
func (d *Dependencies) initDirectory(ctx context.Context, cfg *config.Config) error {
	if d.Directory != nil {
		return nil
	}

	dir, err := directory.NewCognitoFromRegion(ctx, cfg.Cognito.Region, cfg.Cognito.UserPoolID, d.Logger)
	if err != nil {
		return err
	}
	d.Directory = dir

	d.Logger.Info("directory client initialized",
		zap.String("region", cfg.Cognito.Region),
		zap.String("user_pool_id", cfg.Cognito.UserPoolID))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	d.People = people.NewPeopleService(d.Directory, d.Logger)

	d.Audit = audit.NewAccessAuditService(d.AccessLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	return d.Audit.Start()
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if d.Validator == nil {
		d.Validator = &cognitoTokenValidatorAdapter{
			validator: cognito.NewValidator(cognito.Config{
				Region:      cfg.Cognito.Region,
				UserPoolID:  cfg.Cognito.UserPoolID,
				Issuer:      cfg.Cognito.Issuer(),
				ClientID:    cfg.Cognito.ClientID,
				JWKSURL:     cfg.Cognito.KeySetURL(),
				CacheTTL:    cfg.Cognito.KeyCacheTTL,
				HTTPTimeout: cfg.Cognito.HTTPTimeout,

				MinRefreshInterval: cfg.Cognito.MinRefreshInterval,
			}),
		}
		d.Logger.Info("token validator initialized",
			zap.String("issuer", cfg.Cognito.Issuer()),
			zap.String("jwks_url", cfg.Cognito.KeySetURL()))
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Validator, d.People, d.Audit, d.Logger)
}

// cognitoTokenValidatorAdapter adapts cognito.Validator to middleware.TokenValidator
type cognitoTokenValidatorAdapter struct {
	validator *cognito.Validator
}

// NewTokenValidator wraps a cognito.Validator for use by AuthMiddleware
func NewTokenValidator(v *cognito.Validator) middleware.TokenValidator {
	return &cognitoTokenValidatorAdapter{validator: v}
}

func (a *cognitoTokenValidatorAdapter) Verify(ctx context.Context, authorization string) (*middleware.Claims, error) {
	parsed, err := a.validator.Verify(ctx, authorization)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{
		Sub:       parsed.Sub,
		Username:  parsed.Subject(),
		Email:     parsed.Email,
		TokenUse:  parsed.TokenUse,
		Iss:       parsed.Issuer,
		ExpiresAt: parsed.ExpiresAt.Unix(),
	}, nil
}

func (d *Dependencies) closeDatabase() {
	if d.DB != nil {
		_ = d.DB.Close()
		d.DB = nil
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued access logs before the database goes away
	if d.Audit != nil {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
