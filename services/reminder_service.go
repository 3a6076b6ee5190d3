// services/reminder_service.go
package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"latch-backend/messaging"
	"latch-backend/models"
	"latch-backend/repository"
	"latch-backend/utils"
)

const DefaultReminderMessage = "Dear [DriverName], please don't forget to pay your subscription fee. Thank you!"

var (
	ErrPassInProgress      = errors.New("reminder pass already running")
	ErrSessionNotConnected = errors.New("messaging session is not connected")
)

type ReminderConfig struct {
	// Window is how far ahead of its renewal date a driver gets reminded.
	Window     time.Duration
	Interval   time.Duration
	BatchSize  int
	BatchDelay time.Duration
	// SendRate caps messages per second across a pass. Zero means no cap.
	SendRate float64
	// Message may contain the [DriverName] placeholder.
	Message string
}

func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Window:     150 * time.Minute,
		Interval:   time.Hour,
		BatchSize:  5,
		BatchDelay: time.Second,
		Message:    DefaultReminderMessage,
	}
}

// PassResult counts what one reminder pass did.
type PassResult struct {
	Scanned  int
	Eligible int
	Sent     int
	Failed   int
	Skipped  int
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

type ReminderService struct {
	drivers   repository.DriverRepository
	messenger messaging.Messenger
	cfg       ReminderConfig
	limiter   *rate.Limiter
	cron      *cron.Cron
	running   atomic.Bool
	now       func() time.Time
}

func NewReminderService(drivers repository.DriverRepository, messenger messaging.Messenger, cfg ReminderConfig) *ReminderService {
	defaults := DefaultReminderConfig()
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if cfg.Message == "" {
		cfg.Message = defaults.Message
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}

	return &ReminderService{
		drivers:   drivers,
		messenger: messenger,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, cfg.BatchSize),
		now:       time.Now,
	}
}

// Eligible reports whether d is due a reminder: active, dated, and
// now < date <= now+window.
func Eligible(d models.Driver, now time.Time, window time.Duration) bool {
	if !d.SubscriptionStatus.IsActive() || d.NextSubscriptionDate == nil {
		return false
	}
	date := *d.NextSubscriptionDate
	return date.After(now) && !date.After(now.Add(window))
}

// StartScheduler registers the recurring pass. Ticks that land while a pass is
// still running are dropped.
func (s *ReminderService) StartScheduler(ctx context.Context) error {
	logger := cron.PrintfLogger(log.Default())
	s.cron = cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	if _, err := s.cron.AddFunc("@every "+s.cfg.Interval.String(), func() { s.runScheduled(ctx) }); err != nil {
		return errors.Wrap(err, "schedule reminder pass")
	}
	s.cron.Start()
	log.Printf("Reminder scheduler started: every %s, window %s, batches of %d", s.cfg.Interval, s.cfg.Window, s.cfg.BatchSize)
	return nil
}

// TriggerNow runs a pass in the background. Hooked to the session becoming connected.
func (s *ReminderService) TriggerNow(ctx context.Context) {
	go s.runScheduled(ctx)
}

func (s *ReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	log.Println("Reminder scheduler stopped")
}

func (s *ReminderService) Running() bool {
	return s.running.Load()
}

func (s *ReminderService) runScheduled(ctx context.Context) {
	result, err := s.RunPass(ctx)
	switch {
	case errors.Is(err, ErrPassInProgress):
		log.Println("[REMINDER] previous pass still running, skipping this tick")
	case errors.Is(err, ErrSessionNotConnected):
		log.Println("[REMINDER] messaging session not connected, no reminders sent")
	case err != nil:
		log.Printf("[REMINDER] pass aborted: %v", err)
	default:
		log.Printf("[REMINDER] pass done: scanned=%d eligible=%d sent=%d failed=%d skipped=%d",
			result.Scanned, result.Eligible, result.Sent, result.Failed, result.Skipped)
	}
}

// RunPass scans every driver once and reminds the ones whose renewal falls in
// the window, BatchSize at a time.
func (s *ReminderService) RunPass(ctx context.Context) (PassResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return PassResult{}, ErrPassInProgress
	}
	defer s.running.Store(false)

	if !s.messenger.Connected() {
		return PassResult{}, ErrSessionNotConnected
	}

	log.Println("[REMINDER] Checking for upcoming subscriptions...")
	drivers, err := s.drivers.List(ctx)
	if err != nil {
		return PassResult{}, StoreError(err, "Failed to load drivers")
	}

	result := PassResult{Scanned: len(drivers)}
	if len(drivers) == 0 {
		log.Println("[REMINDER] No drivers found in database")
		return result, nil
	}

	now := s.now()
	var mu sync.Mutex
	for start := 0; start < len(drivers); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(drivers))

		var (
			g        errgroup.Group
			storeErr error
		)
		for _, driver := range drivers[start:end] {
			g.Go(func() error {
				out, err := s.remind(ctx, driver, now)

				mu.Lock()
				defer mu.Unlock()
				switch out {
				case outcomeSkipped:
					result.Skipped++
				case outcomeSent:
					result.Eligible++
					result.Sent++
				case outcomeFailed:
					result.Eligible++
					result.Failed++
				}
				if errors.Is(err, ErrStore) && storeErr == nil {
					storeErr = err
				}
				// Per-driver failures never cancel the rest of the batch.
				return nil
			})
		}
		_ = g.Wait()

		if storeErr != nil {
			return result, storeErr
		}
		if end < len(drivers) {
			if err := sleepContext(ctx, s.cfg.BatchDelay); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (s *ReminderService) remind(ctx context.Context, driver models.Driver, now time.Time) (outcome, error) {
	if !Eligible(driver, now, s.cfg.Window) {
		if driver.SubscriptionStatus.IsActive() && driver.NextSubscriptionDate != nil {
			log.Printf("[REMINDER] Skipped %s: subscription date not within %s (%s)",
				driver.Name, s.cfg.Window, driver.NextSubscriptionDate.Format(time.RFC3339))
		} else {
			log.Printf("[REMINDER] Skipped %s: subscription not active or no next subscription date (%s)",
				driver.Name, driver.SubscriptionStatus)
		}
		return outcomeSkipped, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return outcomeFailed, DispatchError(err, "rate limiter")
	}
	if !s.messenger.Connected() {
		log.Printf("[REMINDER] Not sending to %s: session dropped", driver.Name)
		return outcomeFailed, DispatchError(messaging.ErrNotConnected, "session dropped")
	}

	if err := s.messenger.SendMessage(ctx, driver.PhoneNumber, s.messageFor(driver)); err != nil {
		log.Printf("[REMINDER] Error sending to %s: %v", driver.Name, err)
		return outcomeFailed, DispatchError(err, "send reminder")
	}
	log.Printf("[REMINDER] Message sent to %s (%s)", driver.Name, driver.PhoneNumber)

	next := utils.AddMonthClamped(*driver.NextSubscriptionDate)
	if err := s.drivers.SetNextSubscriptionDate(ctx, driver.ID, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[REMINDER] %s was deleted during the pass, date not advanced", driver.Name)
			return outcomeSent, nil
		}
		log.Printf("[REMINDER] Failed to advance nextSubscriptionDate for %s: %v", driver.Name, err)
		return outcomeSent, StoreError(err, "Failed to advance subscription date")
	}
	log.Printf("[REMINDER] Updated nextSubscriptionDate for %s to %s", driver.Name, next.Format(time.RFC3339))
	return outcomeSent, nil
}

func (s *ReminderService) messageFor(driver models.Driver) string {
	return strings.ReplaceAll(s.cfg.Message, "[DriverName]", driver.Name)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
