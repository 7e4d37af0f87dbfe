// Package instance owns the set of live per-account instance windows:
// capacity enforcement, grid placement, creation and teardown, and the
// bookkeeping side effects (account status, activity log) that go with
// them.
package instance

import (
	"sync"
	"time"

	"tokfleet/pkg/device"
	errs "tokfleet/pkg/errors"
	"tokfleet/pkg/fingerprint"
	"tokfleet/pkg/logger"
	"tokfleet/pkg/metrics"
	"tokfleet/pkg/store"
	"tokfleet/pkg/window"
)

const feedURL = "https://www.tiktok.com"

// Settings are the pool-wide knobs the UI can adjust at runtime.
type Settings struct {
	DeviceKey       string `json:"device_key"`
	InstancesPerRow int    `json:"instances_per_row"`
	Spacing         int    `json:"spacing"`
	MaxInstances    int    `json:"max_instances"`
	AutoArrange     bool   `json:"auto_arrange"`
}

// Record is one live per-account instance. At most one exists per
// account at any time.
type Record struct {
	AccountID string
	Username  string
	Profile   device.Profile
	// Width/Height carry the one-time viewport jitter applied at
	// creation.
	Width     int
	Height    int
	Handle    window.Handle
	CreatedAt time.Time

	closed bool
}

// Snapshot is the read-only view of a live instance for the UI.
type Snapshot struct {
	AccountID    string      `json:"account_id"`
	Title        string      `json:"title"`
	Bounds       window.Rect `json:"bounds"`
	Visible      bool        `json:"visible"`
	Focused      bool        `json:"focused"`
	Device       string      `json:"device"`
	AutomationOn bool        `json:"automation_on"`
	ScrollSpeed  int         `json:"scroll_speed"`
}

// StartResult is one account's outcome from StartMultiple.
type StartResult struct {
	AccountID string `json:"account_id"`
	Err       error  `json:"-"`
}

// Pool manages the live instance registry. All registry access happens
// under one mutex so check-then-create stays race-free on real
// goroutines.
type Pool struct {
	store    store.Store
	factory  window.Factory
	screen   window.Screen
	injector *fingerprint.Injector
	log      logger.Logger
	metrics  *metrics.Collector

	mu       sync.Mutex
	settings Settings
	records  map[string]*Record
	order    []string
}

// NewPool creates an empty pool.
func NewPool(st store.Store, factory window.Factory, screen window.Screen, injector *fingerprint.Injector, settings Settings, log logger.Logger, collector *metrics.Collector) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		store:    st,
		factory:  factory,
		screen:   screen,
		injector: injector,
		log:      log,
		metrics:  collector,
		settings: settings,
		records:  make(map[string]*Record),
	}
}

// Create opens an instance for the account. Calling it again while the
// instance is alive focuses and returns the existing record. A full
// pool fails with a capacity error and no side effects.
func (p *Pool) Create(account store.Account) (*Record, error) {
	p.mu.Lock()

	if existing, ok := p.records[account.ID]; ok {
		if !existing.Handle.IsDestroyed() {
			p.mu.Unlock()
			existing.Handle.Focus()
			return existing, nil
		}
		// Stale record for an externally destroyed window.
		p.removeLocked(account.ID)
	}

	if len(p.records) >= p.settings.MaxInstances {
		max := p.settings.MaxInstances
		p.mu.Unlock()
		p.metrics.InstanceCreateFailed("capacity")
		return nil, errs.New(errs.ErrorTypeCapacityExceeded, "maximum %d instances allowed", max)
	}

	profile, err := p.injector.Assign(account.ID)
	if err != nil {
		p.mu.Unlock()
		p.metrics.InstanceCreateFailed("store")
		return nil, err
	}

	width, height := p.injector.LaunchGeometry(profile)
	x, y, placed := p.placementLocked(len(p.records), width, height)
	if !placed {
		p.log.WarnWithFields("instance does not fit on screen, leaving default position", map[string]interface{}{
			"account_id": account.ID,
			"index":      len(p.records),
		})
		x, y = defaultOriginX, defaultOriginY
	}

	handle, err := p.factory.Create(window.Spec{
		Title:     "TikTok - " + account.Username,
		Bounds:    window.Rect{X: x, Y: y, Width: width, Height: height},
		UserAgent: profile.UserAgent,
		Partition: "persist:tiktok_" + account.ID,
		URL:       feedURL,
	})
	if err != nil {
		p.mu.Unlock()
		p.metrics.InstanceCreateFailed("window")
		return nil, err
	}

	record := &Record{
		AccountID: account.ID,
		Username:  account.Username,
		Profile:   profile,
		Width:     width,
		Height:    height,
		Handle:    handle,
		CreatedAt: time.Now(),
	}
	p.records[account.ID] = record
	p.order = append(p.order, account.ID)
	p.mu.Unlock()

	handle.OnClosed(func() {
		p.handleClosed(record)
	})

	// Fingerprint injection waits for the instance to finish loading;
	// noise is drawn per launch.
	noise := p.injector.BuildNoise(profile)
	handle.OnReady(func() {
		handle.Show()
		p.injector.Apply(handle, profile, noise)
	})

	p.applyOpenSideEffects(account.ID, profile)
	p.metrics.InstanceOpened()

	p.log.InfoWithFields("instance opened", map[string]interface{}{
		"account_id": account.ID,
		"username":   account.Username,
		"device":     profile.Name,
		"width":      width,
		"height":     height,
	})

	return record, nil
}

// applyOpenSideEffects flips the account active, stamps last login and
// appends the open event. Store failures are logged, never fatal.
func (p *Pool) applyOpenSideEffects(accountID string, profile device.Profile) {
	if err := p.store.SetAccountStatus(accountID, store.StatusActive); err != nil {
		p.log.WithError(err).Warn("failed to mark account active")
	}
	if err := p.store.SetLastLogin(accountID); err != nil {
		p.log.WithError(err).Warn("failed to stamp last login")
	}
	if err := p.store.AppendActivityLog(accountID, "instance_opened", map[string]interface{}{
		"device": profile.Name,
	}); err != nil {
		p.log.WithError(err).Warn("failed to log instance open")
	}
}

// handleClosed runs exactly once per record when its window goes away,
// whether via Close or external destruction.
func (p *Pool) handleClosed(record *Record) {
	p.mu.Lock()
	if record.closed {
		p.mu.Unlock()
		return
	}
	record.closed = true
	if current, ok := p.records[record.AccountID]; ok && current == record {
		p.removeLocked(record.AccountID)
	}
	p.mu.Unlock()

	if err := p.store.SetAccountStatus(record.AccountID, store.StatusInactive); err != nil {
		p.log.WithError(err).Warn("failed to mark account inactive")
	}
	if err := p.store.AppendActivityLog(record.AccountID, "instance_closed", nil); err != nil {
		p.log.WithError(err).Warn("failed to log instance close")
	}
	p.metrics.InstanceClosed()

	p.log.InfoWithFields("instance closed", map[string]interface{}{
		"account_id": record.AccountID,
	})
}

// Close requests graceful destruction of an account's instance and
// removes the record immediately. Absent accounts are a no-op; so is an
// already-closing instance.
func (p *Pool) Close(accountID string) {
	p.mu.Lock()
	record, ok := p.records[accountID]
	if ok {
		p.removeLocked(accountID)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	if !record.Handle.IsDestroyed() {
		record.Handle.Close()
	}
}

// CloseAll closes every instance and clears the pool.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	records := make([]*Record, 0, len(p.records))
	for _, record := range p.records {
		records = append(records, record)
	}
	p.records = make(map[string]*Record)
	p.order = nil
	p.mu.Unlock()

	for _, record := range records {
		if !record.Handle.IsDestroyed() {
			record.Handle.Close()
		}
	}
}

// Focus raises an account's instance. No-op when absent or destroyed.
func (p *Pool) Focus(accountID string) {
	p.mu.Lock()
	record, ok := p.records[accountID]
	p.mu.Unlock()

	if ok && !record.Handle.IsDestroyed() {
		record.Handle.Focus()
	}
}

// Has reports whether a live instance exists for the account.
func (p *Pool) Has(accountID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.records[accountID]
	return ok && !record.Handle.IsDestroyed()
}

// Get returns the live record for an account, if any.
func (p *Pool) Get(accountID string) (*Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.records[accountID]
	if !ok || record.Handle.IsDestroyed() {
		return nil, false
	}
	return record, true
}

// Size returns the number of registered records.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// ActiveAccountIDs returns the accounts with live instances in creation
// order.
func (p *Pool) ActiveAccountIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.records))
	for _, id := range p.order {
		if record, ok := p.records[id]; ok && !record.Handle.IsDestroyed() {
			out = append(out, id)
		}
	}
	return out
}

// SendCommand forwards a command to an account's instance. Absent or
// destroyed instances are silently skipped.
func (p *Pool) SendCommand(accountID, command string, params map[string]interface{}) {
	p.mu.Lock()
	record, ok := p.records[accountID]
	p.mu.Unlock()

	if !ok || record.Handle.IsDestroyed() {
		return
	}
	if err := record.Handle.SendCommand(command, params); err != nil {
		p.log.WithError(err).WithField("account_id", accountID).Debug("command delivery failed")
	}
}

// StartMultiple opens instances for the first min(count, remaining
// capacity) accounts that are not already active. One account's failure
// never aborts the rest; every outcome is reported. A single rearrange
// pass runs afterward.
func (p *Pool) StartMultiple(accounts []store.Account, count int) []StartResult {
	p.mu.Lock()
	remaining := p.settings.MaxInstances - len(p.records)
	p.mu.Unlock()

	if count > remaining {
		count = remaining
	}

	var candidates []store.Account
	for _, account := range accounts {
		if len(candidates) >= count {
			break
		}
		if p.Has(account.ID) {
			continue
		}
		candidates = append(candidates, account)
	}

	results := make([]StartResult, 0, len(candidates))
	for _, account := range candidates {
		_, err := p.Create(account)
		results = append(results, StartResult{AccountID: account.ID, Err: err})
	}

	if p.settingsSnapshot().AutoArrange {
		p.RearrangeAll()
	}
	return results
}

// ListActive returns a read-only snapshot of every live instance joined
// with its automation settings. Mutates nothing.
func (p *Pool) ListActive() []Snapshot {
	p.mu.Lock()
	records := make([]*Record, 0, len(p.records))
	for _, id := range p.order {
		if record, ok := p.records[id]; ok && !record.Handle.IsDestroyed() {
			records = append(records, record)
		}
	}
	p.mu.Unlock()

	out := make([]Snapshot, 0, len(records))
	for _, record := range records {
		snapshot := Snapshot{
			AccountID: record.AccountID,
			Title:     record.Handle.Title(),
			Bounds:    record.Handle.Bounds(),
			Visible:   record.Handle.IsVisible(),
			Focused:   record.Handle.IsFocused(),
			Device:    record.Profile.Name,
		}
		if settings, err := p.store.GetAutomationSettings(record.AccountID); err == nil && settings != nil {
			snapshot.AutomationOn = settings.AutoScroll
			snapshot.ScrollSpeed = settings.ScrollSpeed
		}
		out = append(out, snapshot)
	}
	return out
}

// UpdateSettings merges new pool settings and re-arranges when
// auto-arrange is on.
func (p *Pool) UpdateSettings(settings Settings) {
	p.mu.Lock()
	if settings.DeviceKey != "" {
		p.settings.DeviceKey = settings.DeviceKey
	}
	if settings.InstancesPerRow > 0 {
		p.settings.InstancesPerRow = settings.InstancesPerRow
	}
	if settings.Spacing >= 0 {
		p.settings.Spacing = settings.Spacing
	}
	if settings.MaxInstances > 0 {
		p.settings.MaxInstances = settings.MaxInstances
	}
	p.settings.AutoArrange = settings.AutoArrange
	autoArrange := p.settings.AutoArrange
	p.mu.Unlock()

	if autoArrange {
		p.RearrangeAll()
	}
}

// Settings returns a copy of the current pool settings.
func (p *Pool) Settings() Settings {
	return p.settingsSnapshot()
}

func (p *Pool) settingsSnapshot() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

func (p *Pool) removeLocked(accountID string) {
	delete(p.records, accountID)
	for i, id := range p.order {
		if id == accountID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}
