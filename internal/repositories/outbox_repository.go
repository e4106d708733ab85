package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxRepository stores notifications until they reach the mailbox.
type OutboxRepository interface {
	Create(ctx context.Context, event *models.OutboxEvent) error
	GetByID(ctx context.Context, id string) (*models.OutboxEvent, error)
	ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	Exists(ctx context.Context, kind, subjectID string) (bool, error)
}

// GORMOutboxRepository is a GORM implementation of OutboxRepository.
type GORMOutboxRepository struct {
	db *gorm.DB
}

// NewGORMOutboxRepository creates a new instance of GORMOutboxRepository.
func NewGORMOutboxRepository(db *gorm.DB) *GORMOutboxRepository {
	return &GORMOutboxRepository{db: db}
}

func (r *GORMOutboxRepository) Create(ctx context.Context, event *models.OutboxEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Status == "" {
		event.Status = models.OutboxPending
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *GORMOutboxRepository) GetByID(ctx context.Context, id string) (*models.OutboxEvent, error) {
	var event models.OutboxEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("outbox event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get outbox event %s: %w", id, err)
	}
	return &event, nil
}

// ListPending returns undispatched events, oldest first.
func (r *GORMOutboxRepository) ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", models.OutboxPending).
		Order("created_at").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending outbox events: %w", err)
	}
	return events, nil
}

func (r *GORMOutboxRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.OutboxDispatched,
			"dispatched_at": at,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    "",
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s dispatched: %w", id, err)
	}
	return nil
}

func (r *GORMOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record outbox failure for %s: %w", id, err)
	}
	return nil
}

// Exists reports whether an event of kind was ever recorded for subjectID.
func (r *GORMOutboxRepository) Exists(ctx context.Context, kind, subjectID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("kind = ? AND subject_id = ?", kind, subjectID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up %s event for %s: %w", kind, subjectID, err)
	}
	return count > 0, nil
}
