package scheduler

import (
	"context"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const (
	SIMULATION_JOB_KEY   = "simulation-tick"
	MIN_SIMULATION_TICK  = time.Second
	SHUTDOWN_GRACE_AFTER = 2 * time.Second
)

type Ticker interface {
	Tick(now time.Time)
}

// SimulationScheduler drives a Ticker from a quartz simple trigger.
type SimulationScheduler struct {
	scheduler quartz.Scheduler
	ticker    Ticker
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type tickJob struct {
	ticker Ticker
	now    func() time.Time
}

func (j *tickJob) Execute(_ context.Context) error {
	j.ticker.Tick(j.now())
	return nil
}

func (j *tickJob) Description() string {
	return "advance the simulated ventilation unit"
}

func NewSimulationScheduler(ticker Ticker, interval time.Duration, logger *zap.Logger) *SimulationScheduler {
	if interval < MIN_SIMULATION_TICK {
		interval = MIN_SIMULATION_TICK
	}
	return &SimulationScheduler{
		scheduler: quartz.NewStdScheduler(),
		ticker:    ticker,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "simulation")),
	}
}

// Start ticks once immediately, then every interval until ctx is done or Stop is called.
func (s *SimulationScheduler) Start(ctx context.Context) error {
	job := &tickJob{ticker: s.ticker, now: s.now}
	if err := job.Execute(ctx); err != nil {
		return err
	}
	s.scheduler.Start(ctx)
	detail := quartz.NewJobDetail(job, quartz.NewJobKey(SIMULATION_JOB_KEY))
	if err := s.scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(s.interval)); err != nil {
		s.scheduler.Stop()
		return err
	}
	s.logger.Info("simulation: started", zap.Duration("interval", s.interval))
	return nil
}

func (s *SimulationScheduler) Stop() {
	if !s.scheduler.IsStarted() {
		return
	}
	s.scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_GRACE_AFTER)
	defer cancel()
	s.scheduler.Wait(ctx)
	s.logger.Info("simulation: stopped")
}
