package repositories

import (
	"context"

	"github.com/upb/people-service/models"
)

// AccessLogRepository persists access audit entries
type AccessLogRepository interface {
	// Insert inserts a new access log entry
	Insert(ctx context.Context, log *models.AccessLog) error
}
