package automation

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokfleet/pkg/config"
	"tokfleet/pkg/scheduler"
	"tokfleet/pkg/store"
)

// fakeSurface records every interaction and exposes fully controllable
// affordances, unlike the optimistic window-backed surface.
type fakeSurface struct {
	mu         sync.Mutex
	scrolls    []int
	scrollTops int
	likes      int
	follows    int
	submits    int
	composed   []string

	atEnd      bool
	likeable   bool
	followable bool
	composable bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{likeable: true, followable: true, composable: true}
}

func (s *fakeSurface) ScrollBy(amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolls = append(s.scrolls, amount)
}

func (s *fakeSurface) ScrollToTop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTops++
	s.atEnd = false
}

func (s *fakeSurface) AtEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atEnd
}

func (s *fakeSurface) CanLike() bool { return s.likeable }
func (s *fakeSurface) Like() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes++
}

func (s *fakeSurface) CanFollow() bool { return s.followable }
func (s *fakeSurface) Follow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows++
}

func (s *fakeSurface) Compose(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.composable {
		return false
	}
	s.composed = append(s.composed, text)
	return true
}

func (s *fakeSurface) Submit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
}

func (s *fakeSurface) scrollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scrolls)
}

func (s *fakeSurface) likeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes
}

func (s *fakeSurface) followCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows
}

// quietTuning keeps the break model out of the way unless a test wants it.
func quietTuning() config.AutomationConfig {
	return config.AutomationConfig{
		FollowTrialProbability: 0.05,
		BreakAfterMin:          1 << 20,
		BreakAfterMax:          1 << 20,
		BreakPauseMin:          10 * time.Second,
		BreakPauseMax:          60 * time.Second,
		SettleDelay:            2 * time.Second,
		LoadTimeout:            10 * time.Second,
	}
}

func newTestController(surface Surface, tun config.AutomationConfig, clock *scheduler.FakeClock, onAction ActionFunc) *Controller {
	rng := rand.New(rand.NewSource(99))
	return NewController("acct-1", surface, tun, clock, nil, rng, onAction)
}

func TestStartTicksAndScrolls(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()
	c := newTestController(surface, quietTuning(), clock, nil)

	c.ApplySettings(store.AutomationSettings{AutoScroll: true, ScrollSpeed: 100})
	c.Start(100)
	defer c.Stop()
	require.True(t, c.Running())

	clock.Advance(5 * time.Second)
	require.Greater(t, surface.scrollCount(), 0)

	surface.mu.Lock()
	defer surface.mu.Unlock()
	for _, amount := range surface.scrolls {
		// base U[50,100) scaled by U[0.5,1.5).
		assert.GreaterOrEqual(t, amount, 25)
		assert.Less(t, amount, 150)
	}
}

func TestStartWithNonPositiveSpeedUsesDefault(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	c := newTestController(newFakeSurface(), quietTuning(), clock, nil)

	c.Start(0)
	defer c.Stop()
	assert.Equal(t, store.DefaultSettings().ScrollSpeed, c.ScrollSpeed())
}

func TestLikeActionFires(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()

	var mu sync.Mutex
	actions := map[string]int{}
	c := newTestController(surface, quietTuning(), clock, func(action string, details map[string]interface{}) {
		mu.Lock()
		defer mu.Unlock()
		actions[action]++
	})

	c.ApplySettings(store.AutomationSettings{
		AutoScroll:      true,
		ScrollSpeed:     100,
		AutoLike:        true,
		LikeProbability: 1.0,
	})
	c.Start(100)
	defer c.Stop()

	clock.Advance(time.Minute)
	assert.Greater(t, surface.likeCount(), 0)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, surface.likeCount(), actions["like"])
}

func TestLikeSkippedWhenAffordanceMissing(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()
	surface.likeable = false

	c := newTestController(surface, quietTuning(), clock, nil)
	c.ApplySettings(store.AutomationSettings{
		AutoScroll:      true,
		ScrollSpeed:     100,
		AutoLike:        true,
		LikeProbability: 1.0,
	})
	c.Start(100)
	defer c.Stop()

	clock.Advance(time.Minute)
	assert.Equal(t, 0, surface.likeCount())
}

func TestFollowHonorsDailyLimit(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	surface := newFakeSurface()

	tun := quietTuning()
	tun.FollowTrialProbability = 1.0
	c := newTestController(surface, tun, clock, nil)

	c.ApplySettings(store.AutomationSettings{
		AutoScroll:       true,
		ScrollSpeed:      100,
		AutoFollow:       true,
		FollowDailyLimit: 2,
	})
	c.Start(100)
	defer c.Stop()

	// Hours of virtual browsing; the quota must still hold.
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, surface.followCount())
	assert.Equal(t, 2, c.FollowsToday())
}

func TestFollowCounterResetsOnNewDay(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC))
	surface := newFakeSurface()

	tun := quietTuning()
	tun.FollowTrialProbability = 1.0
	c := newTestController(surface, tun, clock, nil)

	c.ApplySettings(store.AutomationSettings{
		AutoScroll:       true,
		ScrollSpeed:      100,
		AutoFollow:       true,
		FollowDailyLimit: 1,
	})
	c.Start(100)
	defer c.Stop()

	clock.Advance(30 * time.Minute)
	require.Equal(t, 1, surface.followCount())
	require.Equal(t, 1, c.FollowsToday())

	// Crossing midnight resets the quota on the first check of the new
	// calendar day, so one more follow goes through.
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, surface.followCount())
	assert.Equal(t, 1, c.FollowsToday())
}

func TestCommentUsesTemplates(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()

	var mu sync.Mutex
	var texts []string
	c := newTestController(surface, quietTuning(), clock, func(action string, details map[string]interface{}) {
		if action != "comment" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		texts = append(texts, details["text"].(string))
	})

	// No templates configured: the defaults kick in.
	c.ApplySettings(store.AutomationSettings{
		AutoScroll:         true,
		ScrollSpeed:        100,
		AutoComment:        true,
		CommentProbability: 1.0,
	})
	c.Start(100)
	defer c.Stop()

	clock.Advance(time.Minute)

	surface.mu.Lock()
	composed := append([]string(nil), surface.composed...)
	submits := surface.submits
	surface.mu.Unlock()

	require.NotEmpty(t, composed)
	assert.Equal(t, len(composed), submits)
	for _, text := range composed {
		assert.NotEmpty(t, text)
		assert.NotContains(t, text, "{")
		assert.NotContains(t, text, "|")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, submits, len(texts))
}

func TestBreakSuspendsTicking(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()

	tun := quietTuning()
	tun.BreakAfterMin = 2
	tun.BreakAfterMax = 2
	tun.BreakPauseMin = 10 * time.Second
	tun.BreakPauseMax = 10 * time.Second
	c := newTestController(surface, tun, clock, nil)

	c.ApplySettings(store.AutomationSettings{AutoScroll: true, ScrollSpeed: 100})
	c.Start(100)
	defer c.Stop()

	// Tick periods are in [100ms, 200ms): the first tick scrolls, the
	// second hits the threshold and rests for 10s.
	clock.Advance(time.Second)
	assert.Equal(t, 1, surface.scrollCount())

	clock.Advance(10 * time.Second)
	assert.Greater(t, surface.scrollCount(), 1, "ticking resumes after the pause")
}

func TestEndOfFeedReturnsToTop(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()
	surface.atEnd = true

	c := newTestController(surface, quietTuning(), clock, nil)
	c.ApplySettings(store.AutomationSettings{AutoScroll: true, ScrollSpeed: 100})
	c.Start(100)
	defer c.Stop()

	// One tick plus the 1-3s return delay.
	clock.Advance(5 * time.Second)

	surface.mu.Lock()
	defer surface.mu.Unlock()
	assert.Greater(t, surface.scrollTops, 0)
}

func TestStopCancelsPendingActions(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()
	c := newTestController(surface, quietTuning(), clock, nil)

	c.ApplySettings(store.AutomationSettings{
		AutoScroll:      true,
		ScrollSpeed:     100,
		AutoLike:        true,
		LikeProbability: 1.0,
	})
	c.Start(100)

	// Enough for ticks to schedule delayed likes, not enough for all of
	// them to fire.
	clock.Advance(300 * time.Millisecond)
	c.Stop()
	require.False(t, c.Running())

	likesAtStop := surface.likeCount()
	scrollsAtStop := surface.scrollCount()

	clock.Advance(time.Minute)
	assert.Equal(t, likesAtStop, surface.likeCount())
	assert.Equal(t, scrollsAtStop, surface.scrollCount())
}

func TestStopIsIdempotent(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	c := newTestController(newFakeSurface(), quietTuning(), clock, nil)

	c.Stop()
	c.Start(100)
	c.Stop()
	c.Stop()
	assert.False(t, c.Running())
}

func TestRestartResetsCounters(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()

	tun := quietTuning()
	tun.FollowTrialProbability = 1.0
	c := newTestController(surface, tun, clock, nil)
	c.ApplySettings(store.AutomationSettings{
		AutoScroll:       true,
		ScrollSpeed:      100,
		AutoFollow:       true,
		FollowDailyLimit: 1,
	})

	c.Start(100)
	clock.Advance(30 * time.Minute)
	require.Equal(t, 1, surface.followCount())

	// Stop discards runtime counters; a later start gets a fresh quota.
	c.Stop()
	c.Start(100)
	defer c.Stop()
	clock.Advance(30 * time.Minute)
	assert.Equal(t, 2, surface.followCount())
}

func TestApplySettingsTakesEffectNextTick(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	surface := newFakeSurface()
	c := newTestController(surface, quietTuning(), clock, nil)

	c.ApplySettings(store.AutomationSettings{AutoScroll: true, ScrollSpeed: 100})
	c.Start(100)
	defer c.Stop()

	clock.Advance(time.Second)
	require.Equal(t, 0, surface.likeCount())

	c.ApplySettings(store.AutomationSettings{
		AutoScroll:      true,
		ScrollSpeed:     100,
		AutoLike:        true,
		LikeProbability: 1.0,
	})
	clock.Advance(time.Minute)
	assert.Greater(t, surface.likeCount(), 0)
}
