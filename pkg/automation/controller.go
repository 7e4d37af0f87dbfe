// Package automation drives the in-instance behavioral loop: randomized
// scrolling with human-like rest breaks, and probability-gated like,
// follow and comment actions. Every interval and probability here is
// jittered on purpose; a fixed cadence is what detection systems key on.
package automation

import (
	"math/rand"
	"sync"
	"time"

	"tokfleet/pkg/config"
	"tokfleet/pkg/logger"
	"tokfleet/pkg/scheduler"
	"tokfleet/pkg/store"
)

// followConfirmProbability is the inner gate a follow attempt must pass
// after the outer per-tick trial, keeping follows rare even when
// enabled with a generous daily limit.
const followConfirmProbability = 0.1

// ActionFunc is notified after an automation action is performed.
type ActionFunc func(action string, details map[string]interface{})

// Controller runs the behavioral automation loop for one instance.
// State machine: Stopped -> Running -> (tick) -> Running | Paused ->
// Running | Stopped. Runtime counters exist only while running and are
// discarded on Stop.
type Controller struct {
	accountID string
	surface   Surface
	tun       config.AutomationConfig
	clock     scheduler.Clock
	log       logger.Logger
	onAction  ActionFunc

	mu       sync.Mutex
	rng      *rand.Rand
	settings store.AutomationSettings
	ticker   *scheduler.Repeating
	running  bool

	// break model
	videosSeen     int
	breakThreshold int

	// follow quota, reset on the first check of a new calendar day
	followsToday  int
	lastFollowDay string

	// one-shot delayed actions, cancelled best-effort on Stop
	pending map[*scheduler.Delayed]struct{}
}

// NewController creates a stopped controller for an account's surface.
// A nil rng gets a time-seeded source; a nil onAction is ignored.
func NewController(accountID string, surface Surface, tun config.AutomationConfig, clock scheduler.Clock, log logger.Logger, rng *rand.Rand, onAction ActionFunc) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	if clock == nil {
		clock = scheduler.Real()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	c := &Controller{
		accountID: accountID,
		surface:   surface,
		tun:       tun,
		clock:     clock,
		log:       log,
		onAction:  onAction,
		rng:       rng,
		settings:  store.DefaultSettings(),
		pending:   make(map[*scheduler.Delayed]struct{}),
	}
	c.ticker = scheduler.NewRepeating(clock, c.drawPeriod, c.tick)
	return c
}

// ApplySettings atomically replaces the working configuration. Takes
// effect on the next tick; never starts or stops ticking by itself.
func (c *Controller) ApplySettings(settings store.AutomationSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings
	if len(c.settings.CommentTemplates) == 0 {
		c.settings.CommentTemplates = append([]string(nil), DefaultCommentTemplates...)
	}
}

// Start begins ticking at a jittered cadence around the given base
// speed. Re-issuing Start while running restarts with the new speed
// (last writer wins).
func (c *Controller) Start(speedMs int) {
	if speedMs <= 0 {
		speedMs = store.DefaultSettings().ScrollSpeed
	}

	c.mu.Lock()
	c.settings.ScrollSpeed = speedMs
	c.running = true
	c.videosSeen = 0
	c.breakThreshold = c.drawBreakThresholdLocked()
	c.mu.Unlock()

	c.ticker.Start()

	c.log.InfoWithFields("automation started", map[string]interface{}{
		"account_id": c.accountID,
		"speed_ms":   speedMs,
	})
}

// Stop cancels the tick loop and every pending one-shot action.
// Idempotent. Delayed actions that already fired may still complete;
// that is a documented best-effort limitation.
func (c *Controller) Stop() {
	c.ticker.Stop()

	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	c.videosSeen = 0
	c.followsToday = 0
	c.lastFollowDay = ""
	tasks := c.pending
	c.pending = make(map[*scheduler.Delayed]struct{})
	c.mu.Unlock()

	for task := range tasks {
		task.Cancel()
	}

	if wasRunning {
		c.log.InfoWithFields("automation stopped", map[string]interface{}{
			"account_id": c.accountID,
		})
	}
}

// Running reports whether the tick loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ScrollSpeed returns the current base tick period in ms.
func (c *Controller) ScrollSpeed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.ScrollSpeed
}

// FollowsToday returns today's follow counter, applying the daily reset
// first when the calendar day has rolled over.
func (c *Controller) FollowsToday() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverFollowDayLocked()
	return c.followsToday
}

// drawPeriod returns the next tick period: base speed plus a uniform
// draw in [0, base), i.e. mean 1.5x base with full-width jitter.
func (c *Controller) drawPeriod() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.settings.ScrollSpeed
	jittered := float64(base) + c.rng.Float64()*float64(base)
	return time.Duration(jittered) * time.Millisecond
}

// tick performs one automation step.
func (c *Controller) tick() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	settings := c.settings

	c.videosSeen++
	if c.videosSeen >= c.breakThreshold {
		// Human rest: suspend ticking and resume after a random pause.
		c.videosSeen = 0
		c.breakThreshold = c.drawBreakThresholdLocked()
		pause := c.drawDurationLocked(c.tun.BreakPauseMin, c.tun.BreakPauseMax)
		c.mu.Unlock()

		c.log.DebugWithFields("taking a break", map[string]interface{}{
			"account_id": c.accountID,
			"pause":      pause,
		})
		c.ticker.SuspendFor(pause)
		return
	}

	// Randomized scroll: base 50-100 units scaled by a further +/-50%.
	base := 50 + c.rng.Float64()*50
	amount := int(base * (0.5 + c.rng.Float64()))

	likeRoll := settings.AutoLike && c.rng.Float64() < settings.LikeProbability
	followRoll := settings.AutoFollow && c.rng.Float64() < c.tun.FollowTrialProbability
	commentRoll := settings.AutoComment && c.rng.Float64() < settings.CommentProbability

	likeDelay := c.drawDurationLocked(1*time.Second, 4*time.Second)
	followDelay := c.drawDurationLocked(2*time.Second, 8*time.Second)
	commentDelay := c.drawDurationLocked(3*time.Second, 10*time.Second)
	c.mu.Unlock()

	c.surface.ScrollBy(amount)

	if c.surface.AtEnd() {
		c.scheduleReturnToTop()
		return
	}

	// Independent Bernoulli trials per tick; each action fires after its
	// own randomized delay so actions never align with the scroll beat.
	if likeRoll {
		c.after(likeDelay, c.tryLike)
	}
	if followRoll {
		c.after(followDelay, c.tryFollow)
	}
	if commentRoll {
		c.after(commentDelay, c.tryComment)
	}
}

// scheduleReturnToTop schedules a smooth return to the top of the feed
// after a short pause and resets the break counters.
func (c *Controller) scheduleReturnToTop() {
	c.mu.Lock()
	delay := c.drawDurationLocked(1*time.Second, 3*time.Second)
	c.videosSeen = 0
	c.breakThreshold = c.drawBreakThresholdLocked()
	c.mu.Unlock()

	c.log.DebugWithFields("reached end of feed, returning to top", map[string]interface{}{
		"account_id": c.accountID,
	})
	c.after(delay, c.surface.ScrollToTop)
}

// tryLike performs one probability-gated like attempt.
func (c *Controller) tryLike() {
	c.mu.Lock()
	if !c.running || c.rng.Float64() > c.settings.LikeProbability {
		c.mu.Unlock()
		return
	}
	delay := c.drawDurationLocked(1*time.Second, 5*time.Second)
	c.mu.Unlock()

	if !c.surface.CanLike() {
		return
	}

	c.after(delay, func() {
		c.surface.Like()
		c.notify("like", nil)
	})
}

// tryFollow performs one follow attempt, honoring the daily quota.
func (c *Controller) tryFollow() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.rolloverFollowDayLocked()
	if c.followsToday >= c.settings.FollowDailyLimit {
		c.mu.Unlock()
		return
	}
	if c.rng.Float64() > followConfirmProbability {
		c.mu.Unlock()
		return
	}
	delay := c.drawDurationLocked(2*time.Second, 6*time.Second)
	limit := c.settings.FollowDailyLimit
	c.mu.Unlock()

	if !c.surface.CanFollow() {
		return
	}

	c.after(delay, func() {
		c.surface.Follow()

		c.mu.Lock()
		c.followsToday++
		count := c.followsToday
		c.mu.Unlock()

		c.notify("follow", map[string]interface{}{
			"follows_today": count,
			"daily_limit":   limit,
		})
	})
}

// tryComment performs one probability-gated comment attempt.
func (c *Controller) tryComment() {
	c.mu.Lock()
	if !c.running || c.rng.Float64() > c.settings.CommentProbability {
		c.mu.Unlock()
		return
	}
	templates := c.settings.CommentTemplates
	if len(templates) == 0 {
		c.mu.Unlock()
		return
	}
	template := templates[c.rng.Intn(len(templates))]
	comment := ProcessTemplate(template, c.rng)
	delay := c.drawDurationLocked(1*time.Second, 3*time.Second)
	c.mu.Unlock()

	if !c.surface.Compose(comment) {
		return
	}

	c.after(delay, func() {
		c.surface.Submit()
		c.notify("comment", map[string]interface{}{"text": comment})
	})
}

// rolloverFollowDayLocked resets the follow counter the first time it
// is checked on a new local calendar day.
func (c *Controller) rolloverFollowDayLocked() {
	today := c.clock.Now().Format("2006-01-02")
	if today != c.lastFollowDay {
		c.followsToday = 0
		c.lastFollowDay = today
	}
}

func (c *Controller) drawBreakThresholdLocked() int {
	span := c.tun.BreakAfterMax - c.tun.BreakAfterMin
	if span <= 0 {
		return c.tun.BreakAfterMin
	}
	return c.tun.BreakAfterMin + c.rng.Intn(span+1)
}

func (c *Controller) drawDurationLocked(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(c.rng.Int63n(int64(max-min)))
}

// after schedules a cancellable one-shot action and tracks it so Stop
// can cancel whatever has not fired yet.
func (c *Controller) after(d time.Duration, fn func()) {
	var task *scheduler.Delayed
	task = scheduler.After(c.clock, d, func() {
		c.mu.Lock()
		delete(c.pending, task)
		running := c.running
		c.mu.Unlock()
		if running {
			fn()
		}
	})

	c.mu.Lock()
	if c.running {
		c.pending[task] = struct{}{}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	task.Cancel()
}

func (c *Controller) notify(action string, details map[string]interface{}) {
	if c.onAction != nil {
		c.onAction(action, details)
	}
}
