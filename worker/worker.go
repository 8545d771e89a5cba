package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Worker long running worker
type Worker interface {
	Run(ctx context.Context) error
}

// OnWork one tick of a worker
type OnWork func(ctx context.Context) error

// ErrSkipped the previous tick is still running
var ErrSkipped = errors.New("tick skipped, previous tick still running")

// Checkpoints records the last successful tick of a job
type Checkpoints interface {
	Save(ctx context.Context, key string, value interface{}) error
}

// CronJob runs OnWork on a cron schedule, overlapping ticks are skipped
type CronJob struct {
	Name        string
	Cron        *cron.Cron
	OnWork      OnWork
	Checkpoints Checkpoints
	Now         func() time.Time

	spec    string
	running int32
}

// NewCronJob new cron job, spec follows robfig/cron (including @every & @daily)
func NewCronJob(name, spec string, loc *time.Location, onWork OnWork) *CronJob {
	if loc == nil {
		loc = time.Local
	}

	return &CronJob{
		Name:   name,
		Cron:   cron.New(cron.WithLocation(loc)),
		OnWork: onWork,
		Now:    time.Now,
		spec:   spec,
	}
}

// Run schedule the job and block until ctx is done
func (job *CronJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", job.Name)
	ctx = logger.WithContext(ctx, log)

	if _, err := job.Cron.AddFunc(job.spec, func() {
		if err := job.Tick(ctx); err != nil && !errors.Is(err, ErrSkipped) {
			log.WithError(err).Errorln("tick failed")
		}
	}); err != nil {
		log.WithError(err).Errorln("invalid schedule", job.spec)
		return err
	}

	log.Infoln("scheduled", job.spec)
	job.Cron.Start()
	<-ctx.Done()
	<-job.Cron.Stop().Done()
	return ctx.Err()
}

// Tick run a single tick now
func (job *CronJob) Tick(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&job.running, 0, 1) {
		return ErrSkipped
	}
	defer atomic.StoreInt32(&job.running, 0)

	if err := job.OnWork(ctx); err != nil {
		return err
	}

	if job.Checkpoints != nil {
		key := "worker." + job.Name + ".last_tick"
		if err := job.Checkpoints.Save(ctx, key, job.Now().UTC().Format(time.RFC3339)); err != nil {
			logger.FromContext(ctx).WithError(err).Warnln("save checkpoint", key)
		}
	}

	return nil
}

// TickWorker polls OnWork back to back, backing off after a failed or idle tick
type TickWorker struct {
	Busy time.Duration
	Idle time.Duration
}

// StartTick block until ctx is done
func (w *TickWorker) StartTick(ctx context.Context, onWork OnWork) error {
	busy, idle := w.Busy, w.Idle
	if busy <= 0 {
		busy = 100 * time.Millisecond
	}

	if idle <= 0 {
		idle = 500 * time.Millisecond
	}

	dur := time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := onWork(ctx); err == nil {
				dur = busy
			} else {
				dur = idle
			}
		}
	}
}
