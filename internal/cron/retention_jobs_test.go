package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

type fakeRetentionRepo struct {
	lastCutoff time.Time
	called     int
	deleted    int64
	err        error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func (f *fakeRetentionRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionJobDeletesPublishedRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{deleted: 7}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), Repository: repo})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.AddDate(0, 0, -outboxRetentionDays)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("boom")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), Repository: repo, Retention: 7})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotificationCleanupJobUsesConfiguredRetention(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{deleted: 42}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: repo, Retention: 14})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job := jobIface.(*notificationCleanupJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expected := now.AddDate(0, 0, -14); !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
}

func TestNotificationCleanupJobRequiresRepository(t *testing.T) {
	if _, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error without repository")
	}
}
