package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Runner performs one backup.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// debounce is how long the scheduler waits for a burst of file events to
// settle before asking for a backup.
const debounce = 2 * time.Second

// Scheduler runs backups when the watched directories change and on a
// periodic tick, at most once per interval.
type Scheduler struct {
	runner   Runner
	dirs     []string
	interval time.Duration
	debounce time.Duration
	limiter  *rate.Limiter
	log      logrus.FieldLogger

	triggerCh chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler for runner watching dirs.
func NewScheduler(runner Runner, interval time.Duration, log logrus.FieldLogger, dirs ...string) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		runner:    runner,
		dirs:      dirs,
		interval:  interval,
		debounce:  debounce,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		log:       log.WithField("component", "backup"),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start begins watching. It returns once the watches are in place. A
// stopped scheduler can be started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	for _, dir := range s.dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	s.stopCh = make(chan struct{})
	s.running = true
	s.wg.Add(1)
	go s.loop(ctx, watcher, s.stopCh)
	return nil
}

// Stop halts the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
}

// Trigger requests a backup. It never blocks; requests made while one is
// pending are merged.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// Already pending.
	}
}

func (s *Scheduler) loop(ctx context.Context, watcher *fsnotify.Watcher, stop <-chan struct{}) {
	defer s.wg.Done()
	defer watcher.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, s.Trigger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("Watcher error")

		case <-ticker.C:
			s.runLimited(ctx)

		case <-s.triggerCh:
			s.runLimited(ctx)

		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runLimited(ctx context.Context) {
	if !s.limiter.Allow() {
		s.log.Debug("Backup skipped, last run was too recent")
		return
	}
	// Service.Run logs its own outcome.
	_, _ = s.runner.Run(ctx)
}
