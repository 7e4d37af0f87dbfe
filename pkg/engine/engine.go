// Package engine coordinates per-account automation on top of the
// instance pool: preset application, settings persistence with live
// push, start/stop lifecycle and bulk operations.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"tokfleet/internal/bulkops"
	"tokfleet/pkg/automation"
	"tokfleet/pkg/config"
	"tokfleet/pkg/instance"
	"tokfleet/pkg/logger"
	"tokfleet/pkg/metrics"
	"tokfleet/pkg/scheduler"
	"tokfleet/pkg/store"
	"tokfleet/pkg/window"
)

// bulkWorkers bounds concurrency for non-staggered bulk operations.
const bulkWorkers = 4

// Engine drives automation lifecycle for every account. It owns one
// behavioral controller per live instance, created lazily and discarded
// when the instance closes.
type Engine struct {
	store     store.Store
	pool      *instance.Pool
	tun       config.AutomationConfig
	staggerCf config.StaggerConfig
	clock     scheduler.Clock
	log       logger.Logger
	metrics   *metrics.Collector
	runner    *bulkops.Runner

	mu          sync.Mutex
	rng         *rand.Rand
	controllers map[string]*automation.Controller
	active      map[string]time.Time
}

// NewEngine creates an engine. A nil rng gets a time-seeded source; a
// nil clock gets the wall clock.
func NewEngine(st store.Store, pool *instance.Pool, cfg *config.Config, clock scheduler.Clock, log logger.Logger, collector *metrics.Collector, rng *rand.Rand) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	if clock == nil {
		clock = scheduler.Real()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		store:       st,
		pool:        pool,
		tun:         cfg.Automation,
		staggerCf:   cfg.Stagger,
		clock:       clock,
		log:         log,
		metrics:     collector,
		runner:      bulkops.NewRunner(bulkWorkers, log),
		rng:         rng,
		controllers: make(map[string]*automation.Controller),
		active:      make(map[string]time.Time),
	}
}

// GetSettings returns the account's automation settings with defaults
// merged in: a missing record reads as the defaults, and empty comment
// templates read as the built-in set.
func (e *Engine) GetSettings(accountID string) (store.AutomationSettings, error) {
	stored, err := e.store.GetAutomationSettings(accountID)
	if err != nil {
		return store.AutomationSettings{}, err
	}

	settings := store.DefaultSettings()
	if stored != nil {
		settings = *stored
	}
	if len(settings.CommentTemplates) == 0 {
		settings.CommentTemplates = append([]string(nil), automation.DefaultCommentTemplates...)
	}
	return settings, nil
}

// UpdateSettings persists a partial settings update and pushes the
// merged result to the live instance, if one exists.
func (e *Engine) UpdateSettings(accountID string, patch store.SettingsPatch) error {
	if _, err := e.store.GetAccount(accountID); err != nil {
		return err
	}
	if err := e.store.UpsertAutomationSettings(accountID, patch); err != nil {
		return err
	}
	e.pushLive(accountID)
	return nil
}

// SetCommentTemplates replaces the account's comment template list.
func (e *Engine) SetCommentTemplates(accountID string, templates []string) error {
	return e.UpdateSettings(accountID, store.SettingsPatch{CommentTemplates: &templates})
}

// ApplyPreset derives fresh per-account settings from the named preset,
// persists them and pushes them to the live instance. The account's
// comment templates are kept. Unknown preset names fall back to the
// default preset. Returns whether the push auto-started automation on a
// previously idle instance.
func (e *Engine) ApplyPreset(accountID, presetName string) (bool, error) {
	if _, err := e.store.GetAccount(accountID); err != nil {
		return false, err
	}

	preset := LookupPreset(presetName)

	e.mu.Lock()
	settings := Randomize(preset, e.rng)
	e.mu.Unlock()

	patch := store.FullPatch(settings)
	patch.CommentTemplates = nil
	if err := e.store.UpsertAutomationSettings(accountID, patch); err != nil {
		return false, err
	}

	e.log.InfoWithFields("preset applied", map[string]interface{}{
		"account_id":   accountID,
		"preset":       preset.Name,
		"scroll_speed": settings.ScrollSpeed,
	})

	return e.pushLive(accountID), nil
}

// StartAutomation opens the account's instance if needed, waits for the
// page to be ready, pushes the current settings and starts the
// behavioral loop when auto-scroll is enabled. The ready wait never
// hangs; after the load timeout the push proceeds regardless.
func (e *Engine) StartAutomation(accountID string) error {
	account, err := e.store.GetAccount(accountID)
	if err != nil {
		return err
	}

	record, ok := e.pool.Get(accountID)
	if !ok {
		record, err = e.pool.Create(account)
		if err != nil {
			return err
		}
		e.awaitReady(record.Handle)
	}

	settings, err := e.GetSettings(accountID)
	if err != nil {
		return err
	}

	ctrl := e.controllerFor(record)
	ctrl.ApplySettings(settings)
	if settings.AutoScroll {
		ctrl.Start(settings.ScrollSpeed)
	}

	e.mu.Lock()
	e.active[accountID] = e.clock.Now()
	e.mu.Unlock()

	if err := e.store.AppendActivityLog(accountID, "automation_started", map[string]interface{}{
		"preset": settings.Preset,
	}); err != nil {
		e.log.WithError(err).Warn("failed to log automation start")
	}

	e.log.InfoWithFields("automation lifecycle started", map[string]interface{}{
		"account_id": accountID,
		"preset":     settings.Preset,
	})
	return nil
}

// StopAutomation halts the account's behavioral loop. No-op when the
// account has no instance or no running automation.
func (e *Engine) StopAutomation(accountID string) error {
	e.mu.Lock()
	ctrl := e.controllers[accountID]
	_, wasActive := e.active[accountID]
	delete(e.active, accountID)
	e.mu.Unlock()

	if ctrl != nil {
		ctrl.Stop()
	}
	if !wasActive {
		return nil
	}

	if err := e.store.AppendActivityLog(accountID, "automation_stopped", nil); err != nil {
		e.log.WithError(err).Warn("failed to log automation stop")
	}
	e.log.InfoWithFields("automation lifecycle stopped", map[string]interface{}{
		"account_id": accountID,
	})
	return nil
}

// IsActive reports whether the account's automation lifecycle is on.
func (e *Engine) IsActive(accountID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[accountID]
	return ok
}

// ActiveAutomations returns the accounts with running automation, with
// their start times.
func (e *Engine) ActiveAutomations() map[string]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]time.Time, len(e.active))
	for id, since := range e.active {
		out[id] = since
	}
	return out
}

// BulkApplyPreset applies a preset to many accounts concurrently. Each
// account succeeds or fails on its own.
func (e *Engine) BulkApplyPreset(accountIDs []string, presetName string) []bulkops.Result {
	results := e.runner.Run(accountIDs, func(id string) error {
		_, err := e.ApplyPreset(id, presetName)
		return err
	})
	e.recordBulk("apply_preset", results)
	return results
}

// BulkStart starts automation for many accounts concurrently.
func (e *Engine) BulkStart(accountIDs []string) []bulkops.Result {
	results := e.runner.Run(accountIDs, e.StartAutomation)
	e.recordBulk("start", results)
	return results
}

// BulkStop stops automation for many accounts concurrently.
func (e *Engine) BulkStop(accountIDs []string) []bulkops.Result {
	results := e.runner.Run(accountIDs, e.StopAutomation)
	e.recordBulk("stop", results)
	return results
}

// BulkStartStaggered starts automation for the accounts one at a time,
// sleeping a random stagger interval between consecutive starts so the
// launches never look synchronized. K accounts incur K-1 delays.
func (e *Engine) BulkStartStaggered(accountIDs []string) []bulkops.Result {
	results := make([]bulkops.Result, 0, len(accountIDs))
	for i, id := range accountIDs {
		err := e.StartAutomation(id)
		results = append(results, bulkops.Result{AccountID: id, Err: err})
		e.metrics.BulkResult("start_staggered", err == nil)

		if i < len(accountIDs)-1 {
			delay := e.drawStaggerDelay()
			e.log.DebugWithFields("staggering next start", map[string]interface{}{
				"delay": delay,
			})
			e.sleep(delay)
		}
	}
	return results
}

// AutoScrollAll starts the scroll loop on every live instance at the
// given base speed and returns how many instances were addressed.
func (e *Engine) AutoScrollAll(speedMs int) int {
	ids := e.pool.ActiveAccountIDs()
	for _, id := range ids {
		record, ok := e.pool.Get(id)
		if !ok {
			continue
		}
		ctrl := e.controllerFor(record)
		ctrl.Start(speedMs)

		e.mu.Lock()
		e.active[id] = e.clock.Now()
		e.mu.Unlock()
	}

	e.log.InfoWithFields("auto-scroll started on all instances", map[string]interface{}{
		"count":    len(ids),
		"speed_ms": speedMs,
	})
	return len(ids)
}

// StopScrollAll stops the scroll loop on every live instance and
// returns how many were stopped.
func (e *Engine) StopScrollAll() int {
	ids := e.pool.ActiveAccountIDs()
	stopped := 0
	for _, id := range ids {
		e.mu.Lock()
		ctrl := e.controllers[id]
		delete(e.active, id)
		e.mu.Unlock()

		if ctrl != nil {
			ctrl.Stop()
			stopped++
		}
	}

	e.log.InfoWithFields("auto-scroll stopped on all instances", map[string]interface{}{
		"count": stopped,
	})
	return stopped
}

// Shutdown stops every controller and closes every instance.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	controllers := e.controllers
	e.controllers = make(map[string]*automation.Controller)
	e.active = make(map[string]time.Time)
	e.mu.Unlock()

	for _, ctrl := range controllers {
		ctrl.Stop()
	}
	e.pool.CloseAll()
}

// pushLive pushes the account's merged settings to its live instance.
// When auto-scroll is enabled the loop is (re)started at the stored
// speed; when it is disabled a running loop is stopped. Returns whether
// a previously idle loop was auto-started.
func (e *Engine) pushLive(accountID string) bool {
	record, ok := e.pool.Get(accountID)
	if !ok {
		return false
	}

	settings, err := e.GetSettings(accountID)
	if err != nil {
		e.log.WithError(err).WithField("account_id", accountID).Warn("failed to read settings for live push")
		return false
	}

	ctrl := e.controllerFor(record)
	ctrl.ApplySettings(settings)

	if settings.AutoScroll {
		wasRunning := ctrl.Running()
		ctrl.Start(settings.ScrollSpeed)

		e.mu.Lock()
		e.active[accountID] = e.clock.Now()
		e.mu.Unlock()

		if wasRunning {
			return false
		}
		if err := e.store.AppendActivityLog(accountID, "automation_started", map[string]interface{}{
			"preset": settings.Preset,
		}); err != nil {
			e.log.WithError(err).Warn("failed to log automation start")
		}
		return true
	}

	if ctrl.Running() {
		ctrl.Stop()

		e.mu.Lock()
		delete(e.active, accountID)
		e.mu.Unlock()

		if err := e.store.AppendActivityLog(accountID, "automation_stopped", nil); err != nil {
			e.log.WithError(err).Warn("failed to log automation stop")
		}
	}
	return false
}

// controllerFor returns the account's controller, creating one bound to
// the record's window on first use. The controller is torn down when
// that window closes.
func (e *Engine) controllerFor(record *instance.Record) *automation.Controller {
	e.mu.Lock()
	if ctrl, ok := e.controllers[record.AccountID]; ok {
		e.mu.Unlock()
		return ctrl
	}

	accountID := record.AccountID
	surface := automation.NewWindowSurface(record.Handle)
	ctrl := automation.NewController(accountID, surface, e.tun, e.clock, e.log, nil, func(action string, details map[string]interface{}) {
		e.metrics.ActionPerformed(action)
	})
	e.controllers[accountID] = ctrl
	e.mu.Unlock()

	record.Handle.OnClosed(func() {
		e.handleInstanceClosed(accountID)
	})
	return ctrl
}

// handleInstanceClosed discards the controller for a closed instance.
// A later reopen gets a fresh controller bound to the new window.
func (e *Engine) handleInstanceClosed(accountID string) {
	e.mu.Lock()
	ctrl := e.controllers[accountID]
	delete(e.controllers, accountID)
	delete(e.active, accountID)
	e.mu.Unlock()

	if ctrl != nil {
		ctrl.Stop()
	}
}

// awaitReady blocks until the window reports ready plus a short settle
// delay, or until the load timeout elapses, whichever comes first.
func (e *Engine) awaitReady(handle window.Handle) {
	if e.tun.LoadTimeout <= 0 {
		return
	}

	ready := make(chan struct{})
	var once sync.Once
	handle.OnReady(func() {
		once.Do(func() { close(ready) })
	})

	timeout := make(chan struct{})
	guard := scheduler.After(e.clock, e.tun.LoadTimeout, func() { close(timeout) })
	defer guard.Cancel()

	select {
	case <-ready:
		if e.tun.SettleDelay <= 0 {
			return
		}
		settled := make(chan struct{})
		settle := scheduler.After(e.clock, e.tun.SettleDelay, func() { close(settled) })
		select {
		case <-settled:
		case <-timeout:
			settle.Cancel()
		}
	case <-timeout:
		e.log.Warn("instance did not report ready before the load timeout, continuing")
	}
}

// drawStaggerDelay draws one inter-start stagger interval.
func (e *Engine) drawStaggerDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	min, max := e.staggerCf.MinDelay, e.staggerCf.MaxDelay
	if max <= min {
		return min
	}
	return min + time.Duration(e.rng.Int63n(int64(max-min)))
}

// sleep blocks on the injected clock so staggered starts are testable
// on virtual time.
func (e *Engine) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	done := make(chan struct{})
	scheduler.After(e.clock, d, func() { close(done) })
	<-done
}

func (e *Engine) recordBulk(operation string, results []bulkops.Result) {
	for _, result := range results {
		e.metrics.BulkResult(operation, result.Err == nil)
	}
}
