package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is the subset of *logging.Logger the pruner reports through.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// pruneTimeout bounds a single scheduled prune.
const pruneTimeout = time.Minute

// Pruner deletes readings older than a retention period on a cron schedule.
type Pruner struct {
	repo      Repository
	retention time.Duration
	cron      *cron.Cron
	logger    Logger

	mu      sync.Mutex
	started bool
}

// NewPruner schedules retention pruning.
//
// Parameters:
//   - repo: Repository to prune
//   - retention: How long readings are kept (must be positive)
//   - schedule: Standard cron expression or descriptor such as "@daily"
//
// Returns:
//   - *Pruner: Pruner ready to Start
//   - error: If retention is not positive or the schedule does not parse
func NewPruner(repo Repository, retention time.Duration, schedule string) (*Pruner, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("history: retention must be positive")
	}

	p := &Pruner{
		repo:      repo,
		retention: retention,
		cron:      cron.New(),
		logger:    noopLogger{},
	}
	if _, err := p.cron.AddFunc(schedule, p.runScheduled); err != nil {
		return nil, fmt.Errorf("history: parsing prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// SetLogger sets the logger for prune results.
func (p *Pruner) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	p.logger = l
}

// Start begins running the schedule in the background.
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish or ctx to expire.
func (p *Pruner) Stop(ctx context.Context) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce prunes immediately.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	return p.repo.Prune(ctx, p.retention)
}

func (p *Pruner) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	deleted, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.Error("history prune failed", "error", err)
		return
	}
	p.logger.Info("history pruned", "deleted", deleted, "retention", p.retention.String())
}
