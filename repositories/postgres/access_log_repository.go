package postgres

import (
	"context"
	"fmt"

	"github.com/upb/people-service/models"
	"github.com/upb/people-service/repositories"
	"go.uber.org/zap"
)

const accessLogColumns = `id, request_id, subject, method, route, required_group,
	decision, reason, status_code, ip_address, user_agent, timestamp`

// AccessLogRepository implements the repositories.AccessLogRepository interface
type AccessLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAccessLogRepository creates a new access log repository
func NewAccessLogRepository(db *DB, logger *zap.Logger) repositories.AccessLogRepository {
	return &AccessLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new access log entry
func (r *AccessLogRepository) Insert(ctx context.Context, log *models.AccessLog) error {
	query := `
		INSERT INTO access_logs (` + accessLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.RequestID,
		log.Subject,
		log.Method,
		log.Route,
		log.Group,
		log.Decision,
		log.Reason,
		log.StatusCode,
		log.IPAddress,
		log.UserAgent,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access log: %w", err)
	}

	r.logger.Debug("access log inserted",
		zap.String("id", log.ID.String()),
		zap.String("decision", string(log.Decision)))
	return nil
}
