package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/motortribe/motortribe/internal/platform/logger"
)

// Rebuilder runs periodic full index rebuilds as the recovery path for
// missed or failed incremental updates
type Rebuilder struct {
	cron    *cron.Cron
	service *SearchService
	logger  logger.Logger
}

// NewRebuilder schedules Rebuild on the given cron spec (e.g. "@every 1h")
func NewRebuilder(service *SearchService, schedule string, log logger.Logger) (*Rebuilder, error) {
	c := cron.New()

	r := &Rebuilder{
		cron:    c,
		service: service,
		logger:  log,
	}

	if _, err := c.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid rebuild schedule %q: %w", schedule, err)
	}

	return r, nil
}

// Start begins the schedule
func (r *Rebuilder) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running rebuild to finish
func (r *Rebuilder) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Rebuilder) run() {
	if err := r.service.Rebuild(context.Background()); err != nil {
		r.logger.Error("scheduled index rebuild failed", "error", err)
	}
}
