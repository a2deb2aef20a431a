package webhook

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/xraph-labs/nexus-registry/pkg/observability"
)

// Sweeper runs Dispatcher.RetryPending on a cron schedule, replacing the
// fixed-interval ticker the original retry worker used with a proper
// cron expression so operators can tune sweep frequency without a
// redeploy.
type Sweeper struct {
	cron   *cron.Cron
	disp   *Dispatcher
	logger *observability.Logger
	ctx    context.Context
}

// NewSweeper builds a Sweeper that will invoke disp.RetryPending on the
// schedule later passed to Start, a standard five-field cron expression
// (e.g. "*/30 * * * * *" is NOT standard cron; use "@every 30s" for
// sub-minute cadences).
func NewSweeper(disp *Dispatcher, logger *observability.Logger) *Sweeper {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Sweeper{cron: cron.New(), disp: disp, logger: logger}
}

// Start schedules the retry sweep under spec (e.g. "@every 30s") and
// begins running it in the background until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	s.ctx = ctx
	_, err := s.cron.AddFunc(spec, func() {
		s.disp.RetryPending(s.ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	return nil
}

// Stop halts the sweep immediately, waiting for any in-flight run to
// finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
