// Package window abstracts the renderable per-account instance as an
// opaque capability handle. The controller never assumes a concrete
// browser engine; a host embedding tokfleet supplies the Factory.
package window

// Rect is a screen rectangle in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Spec describes the window an instance should be created with.
type Spec struct {
	Title     string
	Bounds    Rect
	UserAgent string
	// Partition isolates storage per account so sessions never bleed
	// between instances.
	Partition string
	URL       string
}

// Handle is the capability interface over one live instance window.
// Implementations must tolerate calls after destruction; a destroyed
// handle reports IsDestroyed and ignores everything else.
type Handle interface {
	Focus()
	Show()
	Close()
	IsDestroyed() bool
	IsVisible() bool
	IsFocused() bool

	Title() string
	Bounds() Rect
	SetBounds(bounds Rect)

	// SendCommand delivers a named command with parameters to the
	// automation layer running inside the instance.
	SendCommand(command string, params map[string]interface{}) error

	// RunScript executes a script in the instance's page context.
	RunScript(script string) error

	// OnReady registers a callback fired once the instance has loaded.
	OnReady(fn func())

	// OnClosed registers a callback fired when the window goes away,
	// whether by Close or by external action.
	OnClosed(fn func())
}

// Factory creates instance windows.
type Factory interface {
	Create(spec Spec) (Handle, error)
}

// Screen reports the usable desktop area for grid placement.
type Screen interface {
	WorkArea() Rect
}

// StaticScreen is a Screen with a fixed work area, typically sourced
// from configuration when no display probe is available.
type StaticScreen struct {
	Area Rect
}

// WorkArea returns the fixed work area.
func (s StaticScreen) WorkArea() Rect {
	return s.Area
}
