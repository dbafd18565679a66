package worker

import (
	"context"
	"errors"
	"time"

	"contest_hub/internal/app/service"
	"contest_hub/internal/common"
	"contest_hub/internal/platform/logger"
	"contest_hub/internal/platform/queue"

	"go.uber.org/zap"
)

type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
	Requeue(ctx context.Context, id string) error
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) (bool, error), ok bool, err error)
}

type Reconciler interface {
	ReconcileContest(ctx context.Context, contestID string) (*service.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]service.ReconcileReport, error)
}

type Options struct {
	LockKey  string
	LockTTL  time.Duration
	Interval time.Duration // zero disables the periodic sweep

	PopTimeout time.Duration
	RetryDelay time.Duration
}

// ReconcileWorker drains the reconcile queue one contest at a time and periodically sweeps
// every contest. Both paths hold a Redis lock so that several instances never reconcile the
// same contest concurrently.
type ReconcileWorker struct {
	queue      JobQueue
	locker     Locker
	reconciler Reconciler
	opts       Options
}

func NewReconcileWorker(q JobQueue, locker Locker, reconciler Reconciler, opts Options) *ReconcileWorker {
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 5 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	return &ReconcileWorker{queue: q, locker: locker, reconciler: reconciler, opts: opts}
}

func (w *ReconcileWorker) contestLockKey(id string) string { return w.opts.LockKey + ":contest:" + id }
func (w *ReconcileWorker) sweepLockKey() string            { return w.opts.LockKey + ":sweep" }

// Start blocks until ctx is cancelled.
func (w *ReconcileWorker) Start(ctx context.Context) {
	logger.Info("reconcile worker started", zap.Duration("interval", w.opts.Interval))
	if w.opts.Interval > 0 {
		go w.sweepLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconcile worker stopping")
			return
		default:
		}

		contestID, err := w.queue.Dequeue(ctx, w.opts.PopTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Error("failed to pop from reconcile queue", zap.Error(err))
			sleep(ctx, 5*time.Second)
			continue
		}
		logger.Debug("reconcile worker picked up contest", zap.String("contest_id", contestID))

		if !w.processWithLock(ctx, contestID) {
			sleep(ctx, w.opts.RetryDelay)
		}
	}
}

// processWithLock reports false when the contest was put back on the queue.
func (w *ReconcileWorker) processWithLock(ctx context.Context, contestID string) bool {
	key := w.contestLockKey(contestID)
	release, ok, err := w.locker.Acquire(ctx, key, w.opts.LockTTL)
	if err != nil {
		logger.Error("failed to attempt reconcile lock", zap.String("contest_id", contestID), zap.Error(err))
		w.requeue(ctx, contestID)
		return false
	}
	if !ok {
		logger.Info("contest already being reconciled, re-queueing", zap.String("contest_id", contestID))
		w.requeue(ctx, contestID)
		return false
	}
	defer w.release(ctx, key, release)

	report, err := w.reconciler.ReconcileContest(ctx, contestID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.Info("queued contest no longer exists", zap.String("contest_id", contestID))
			return true
		}
		logger.Error("reconcile failed", zap.String("contest_id", contestID), zap.Error(err))
		w.requeue(ctx, contestID)
		return false
	}
	logger.Info("contest reconciled",
		zap.String("contest_id", contestID),
		zap.Int("participants", report.ParticipantsAfter),
		zap.Bool("repaired", report.Repaired()))
	return true
}

func (w *ReconcileWorker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil && !errors.Is(err, common.ErrReconcileLockFailed) {
				logger.Error("reconcile sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep reconciles every contest under the global sweep lock. It returns
// ErrReconcileLockFailed when another instance holds the lock.
func (w *ReconcileWorker) Sweep(ctx context.Context) error {
	key := w.sweepLockKey()
	release, ok, err := w.locker.Acquire(ctx, key, w.opts.LockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrReconcileLockFailed
	}
	defer w.release(ctx, key, release)

	reports, err := w.reconciler.ReconcileAll(ctx)
	repaired := 0
	for i := range reports {
		if reports[i].Repaired() {
			repaired++
		}
	}
	logger.Info("reconcile sweep finished", zap.Int("contests", len(reports)), zap.Int("repaired", repaired))
	return err
}

func (w *ReconcileWorker) release(ctx context.Context, key string, release func(context.Context) (bool, error)) {
	// the run context may already be cancelled at shutdown
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	held, err := release(releaseCtx)
	if err != nil {
		logger.Error("failed to release reconcile lock", zap.String("key", key), zap.Error(err))
	} else if !held {
		logger.Warn("reconcile lock expired before release", zap.String("key", key))
	}
}

func (w *ReconcileWorker) requeue(ctx context.Context, contestID string) {
	if err := w.queue.Requeue(context.WithoutCancel(ctx), contestID); err != nil {
		logger.Error("failed to re-queue contest", zap.String("contest_id", contestID), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
