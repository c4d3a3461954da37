package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-allocation-api/internal/models"
	"github.com/noah-isme/course-allocation-api/pkg/jobs"
)

type auditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error)
}

// AuditService persists audit entries asynchronously through a background
// worker queue, so privileged flows never block on the audit write. Entries
// that fail to enqueue are written synchronously as a fallback.
type AuditService struct {
	store  auditStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs AuditService and its backing queue.
func NewAuditService(store auditStore, cfg jobs.QueueConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{store: store, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, cfg)
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry for asynchronous persistence.
func (s *AuditService) Record(entry models.AuditLog) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "audit.write",
		Payload: entry,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("audit enqueue failed, writing synchronously", zap.Error(err))
		if err := s.store.Create(context.Background(), &entry); err != nil {
			s.logger.Error("audit write failed", zap.Error(err), zap.String("action", entry.Action))
		}
	}
}

// ListByEntity returns recorded entries for one entity, newest first.
func (s *AuditService) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error) {
	return s.store.ListByEntity(ctx, entityType, entityID, limit)
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	return s.store.Create(ctx, &entry)
}
