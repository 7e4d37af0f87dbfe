package automation

import (
	"tokfleet/pkg/window"
)

// Surface is the affordance interface a controller drives. It models
// what the automation layer can see and touch in the current view:
// the feed scroll position and the like/follow/comment affordances.
type Surface interface {
	ScrollBy(amount int)
	ScrollToTop()
	// AtEnd reports whether the feed scroll position has reached the
	// end of loaded content.
	AtEnd() bool

	// CanLike reports whether a like affordance is present and not
	// already toggled.
	CanLike() bool
	Like()

	CanFollow() bool
	Follow()

	// Compose inserts text into the comment affordance, reporting
	// whether one exists.
	Compose(text string) bool
	Submit()
}

// WindowSurface adapts a live window handle to the Surface interface by
// forwarding commands to the agent running inside the instance. The
// in-page agent no-ops safely when an affordance is missing, so
// presence checks are optimistic here; only a destroyed window reports
// affordances as absent.
type WindowSurface struct {
	handle window.Handle
}

// NewWindowSurface wraps a window handle.
func NewWindowSurface(handle window.Handle) *WindowSurface {
	return &WindowSurface{handle: handle}
}

func (s *WindowSurface) ScrollBy(amount int) {
	_ = s.handle.SendCommand("scroll", map[string]interface{}{"amount": amount})
}

func (s *WindowSurface) ScrollToTop() {
	_ = s.handle.SendCommand("scroll-top", nil)
}

// AtEnd always reports false; the in-page agent detects the end of
// loaded content itself and loops back to the top.
func (s *WindowSurface) AtEnd() bool {
	return false
}

func (s *WindowSurface) CanLike() bool {
	return !s.handle.IsDestroyed()
}

func (s *WindowSurface) Like() {
	_ = s.handle.SendCommand("tap-like", nil)
}

func (s *WindowSurface) CanFollow() bool {
	return !s.handle.IsDestroyed()
}

func (s *WindowSurface) Follow() {
	_ = s.handle.SendCommand("tap-follow", nil)
}

func (s *WindowSurface) Compose(text string) bool {
	return s.handle.SendCommand("compose-comment", map[string]interface{}{"text": text}) == nil
}

func (s *WindowSurface) Submit() {
	_ = s.handle.SendCommand("submit-comment", nil)
}
