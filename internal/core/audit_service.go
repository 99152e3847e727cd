package core

import (
	"context"
	"fmt"

	"docadmin-backend-go/internal/db"
	"docadmin-backend-go/internal/models"
)

// auditLimits bound how much trail a single request can pull back.
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// auditService implements AuditService on top of the append-only repository.
type auditService struct {
	auditRepo db.AuditRepository
}

// NewAuditService creates an AuditService backed by the given repository.
func NewAuditService(auditRepo db.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(ctx context.Context, entry models.AuditEntry) error {
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (s *auditService) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return s.auditRepo.ListRecent(ctx, clampLimit(limit))
}

func (s *auditService) ForCollection(ctx context.Context, collection string, limit int) ([]models.AuditEntry, error) {
	return s.auditRepo.ListByCollection(ctx, collection, clampLimit(limit))
}

func (s *auditService) ForDocument(ctx context.Context, collection, docID string, limit int) ([]models.AuditEntry, error) {
	return s.auditRepo.ListByDocument(ctx, collection, docID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultAuditLimit
	}
	if limit > maxAuditLimit {
		return maxAuditLimit
	}
	return limit
}
