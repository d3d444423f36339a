package usecase

import (
	"context"
	"fmt"

	applogger "WorthWatch/pkg/logger"
	pkgqueue "WorthWatch/pkg/queue"
)

// RebuildJobType is the queue message type for dashboard rebuild requests.
const RebuildJobType = "dashboard.rebuild"

// RebuildPayload asks for one dashboard rebuild. Month is informational;
// a rebuild always covers the whole ledger.
type RebuildPayload struct {
	Trigger string `json:"trigger"`
	Month   string `json:"month,omitempty"`
}

// RebuildJob drains rebuild requests from the queue, collapsing bursts of
// ingested months into sequential rebuilds.
type RebuildJob struct {
	dashboard *DashboardUseCase
	log       *applogger.Logger
}

func NewRebuildJob(dashboard *DashboardUseCase, log *applogger.Logger) *RebuildJob {
	return &RebuildJob{dashboard: dashboard, log: log}
}

func (j *RebuildJob) Name() string { return "dashboard-rebuild" }

func (j *RebuildJob) Type() string { return RebuildJobType }

func (j *RebuildJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := pkgqueue.ParsePayload[RebuildPayload](payload)
	if err != nil {
		return fmt.Errorf("parse rebuild payload: %w", err)
	}
	trigger := p.Trigger
	if trigger == "" {
		trigger = "queue"
	}
	if j.log != nil && p.Month != "" {
		j.log.Debug("rebuild requested", applogger.String("month", p.Month), applogger.String("trigger", trigger))
	}
	_, err = j.dashboard.Rebuild(ctx, trigger)
	return err
}

var _ pkgqueue.Job = (*RebuildJob)(nil)
