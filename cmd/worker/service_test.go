package main

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubConsumer struct {
	err     error
	started chan struct{}
}

func (s *stubConsumer) Run(ctx context.Context) error {
	close(s.started)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestServiceRunStopsOnDependencyFailure(t *testing.T) {
	consumer := &stubConsumer{started: make(chan struct{})}
	svc, err := NewService(ServiceParams{
		Logger:    logger.Nop(),
		DB:        stubPinger{},
		Redis:     stubPinger{err: errors.New("redis down")},
		PubSub:    stubPinger{},
		Consumers: map[string]runner{"inbox": consumer},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected readiness error")
	}
	select {
	case <-consumer.started:
		t.Fatal("consumer should not start before dependencies are ready")
	default:
	}
}

func TestServiceRunReturnsConsumerFailure(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger:    logger.Nop(),
		DB:        stubPinger{},
		Redis:     stubPinger{},
		PubSub:    stubPinger{},
		Consumers: map[string]runner{"inbox": &stubConsumer{err: boom, started: make(chan struct{})}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected consumer error, got %v", err)
	}
}

func TestServiceRunHonoursCancellation(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:    logger.Nop(),
		DB:        stubPinger{},
		Redis:     stubPinger{},
		PubSub:    stubPinger{},
		Consumers: map[string]runner{"inbox": &stubConsumer{started: make(chan struct{})}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
