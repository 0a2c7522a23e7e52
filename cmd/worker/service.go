package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	PubSub    pinger
	Consumers map[string]runner
}

// Service runs the event consumers once every dependency answers a ping.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]runner
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case len(params.Consumers) == 0:
		return nil, errors.New("at least one consumer is required")
	}
	return &Service{
		logg:      params.Logger,
		deps:      map[string]pinger{"database": params.DB, "redis": params.Redis, "pubsub": params.PubSub},
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, name := range []string{"database", "redis", "pubsub"} {
		if err := s.deps[name].Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until ctx is canceled or a consumer exits; the first consumer failure stops the worker.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type exit struct {
		name string
		err  error
	}
	exits := make(chan exit, len(s.consumers))
	for name, consumer := range s.consumers {
		go func(name string, consumer runner) {
			exits <- exit{name: name, err: consumer.Run(ctx)}
		}(name, consumer)
	}

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case done := <-exits:
		if done.err != nil && !errors.Is(done.err, context.Canceled) {
			s.logg.Error(s.logg.WithField(ctx, "consumer", done.name), "consumer stopped unexpectedly", done.err)
			return done.err
		}
		return done.err
	}
}
