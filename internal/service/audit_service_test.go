package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ziel-classes-api/internal/models"
)

type recordingAuditRepo struct {
	mu       sync.Mutex
	logs     []models.AuditLog
	failures int
}

func (r *recordingAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("temporary failure")
	}
	r.logs = append(r.logs, *log)
	return nil
}

func (r *recordingAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}

func TestAuditServiceWritesInBackground(t *testing.T) {
	repo := &recordingAuditRepo{failures: 1}
	svc := NewAuditService(repo, AuditConfig{Enabled: true, Workers: 2, Retries: 2, RetryDelay: 10 * time.Millisecond}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Record(models.AuditLog{Action: models.AuditActionCreate, Resource: models.AuditResourceBooking})
	svc.Record(models.AuditLog{Action: models.AuditActionDelete, Resource: models.AuditResourceBooking})

	require.Eventually(t, func() bool { return repo.count() == 2 }, time.Second, 5*time.Millisecond)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, log := range repo.logs {
		assert.False(t, log.CreatedAt.IsZero())
	}
}

func TestAuditServiceDisabledIsNoop(t *testing.T) {
	repo := &recordingAuditRepo{}
	svc := NewAuditService(repo, AuditConfig{Enabled: false}, nil)
	svc.Start(context.Background())
	svc.Record(models.AuditLog{Action: models.AuditActionCreate})
	svc.Stop()
	assert.Equal(t, 0, repo.count())

	var nilSvc *AuditService
	nilSvc.Record(models.AuditLog{})
}

func TestAuditServiceStopPersistsEntriesQueuedAfterCancel(t *testing.T) {
	repo := &recordingAuditRepo{}
	svc := NewAuditService(repo, AuditConfig{Enabled: true, Workers: 1, Retries: 0}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	cancel()

	svc.Record(models.AuditLog{Action: models.AuditActionUpdate, Resource: models.AuditResourceBooking})
	svc.Record(models.AuditLog{Action: models.AuditActionDelete, Resource: models.AuditResourceBooking})
	svc.Stop()

	assert.Equal(t, 2, repo.count())
}
