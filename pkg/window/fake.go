package window

import (
	"sync"

	errs "tokfleet/pkg/errors"
)

// Command is one recorded SendCommand call.
type Command struct {
	Name   string
	Params map[string]interface{}
}

// FakeWindow is an in-memory Handle implementation for tests and the
// demo command. Ready and close events are raised manually with
// EmitReady / EmitClosed.
type FakeWindow struct {
	mu        sync.Mutex
	spec      Spec
	bounds    Rect
	destroyed bool
	visible   bool
	focused   bool
	commands  []Command
	scripts   []string
	onReady   []func()
	onClosed  []func()
	ready     bool

	// ScriptErr, when set, is returned by RunScript.
	ScriptErr error
}

// NewFakeWindow creates a fake window for the given spec.
func NewFakeWindow(spec Spec) *FakeWindow {
	return &FakeWindow{spec: spec, bounds: spec.Bounds, visible: true}
}

func (w *FakeWindow) Focus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.destroyed {
		w.focused = true
	}
}

func (w *FakeWindow) Show() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.destroyed {
		w.visible = true
	}
}

// Close destroys the window and fires registered close callbacks, the
// same way a real window emits its closed event.
func (w *FakeWindow) Close() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	callbacks := append([]func(){}, w.onClosed...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (w *FakeWindow) IsDestroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

func (w *FakeWindow) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible && !w.destroyed
}

func (w *FakeWindow) IsFocused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused && !w.destroyed
}

func (w *FakeWindow) Title() string {
	return w.spec.Title
}

func (w *FakeWindow) Bounds() Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *FakeWindow) SetBounds(bounds Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.destroyed {
		w.bounds = bounds
	}
}

func (w *FakeWindow) SendCommand(command string, params map[string]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return errs.New(errs.ErrorTypeInstanceClosed, "window already destroyed")
	}
	w.commands = append(w.commands, Command{Name: command, Params: params})
	return nil
}

func (w *FakeWindow) RunScript(script string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return errs.New(errs.ErrorTypeInstanceClosed, "window already destroyed")
	}
	if w.ScriptErr != nil {
		return w.ScriptErr
	}
	w.scripts = append(w.scripts, script)
	return nil
}

func (w *FakeWindow) OnReady(fn func()) {
	w.mu.Lock()
	if w.ready {
		w.mu.Unlock()
		fn()
		return
	}
	w.onReady = append(w.onReady, fn)
	w.mu.Unlock()
}

func (w *FakeWindow) OnClosed(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClosed = append(w.onClosed, fn)
}

// EmitReady marks the window loaded and fires ready callbacks once.
func (w *FakeWindow) EmitReady() {
	w.mu.Lock()
	if w.ready || w.destroyed {
		w.mu.Unlock()
		return
	}
	w.ready = true
	callbacks := w.onReady
	w.onReady = nil
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// EmitClosed simulates the window being closed externally, e.g. by the
// user or the OS, without going through Close.
func (w *FakeWindow) EmitClosed() {
	w.Close()
}

// Commands returns the recorded SendCommand calls.
func (w *FakeWindow) Commands() []Command {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Command(nil), w.commands...)
}

// Scripts returns the recorded RunScript payloads.
func (w *FakeWindow) Scripts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.scripts...)
}

// Spec returns the creation spec.
func (w *FakeWindow) Spec() Spec {
	return w.spec
}

// FakeFactory creates FakeWindows and records them for inspection.
type FakeFactory struct {
	mu      sync.Mutex
	windows []*FakeWindow

	// CreateErr, when set, fails every Create call.
	CreateErr error
	// AutoReady fires EmitReady immediately after creation.
	AutoReady bool
}

// NewFakeFactory creates an empty fake factory.
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{}
}

// Create builds a new fake window for the spec.
func (f *FakeFactory) Create(spec Spec) (Handle, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	w := NewFakeWindow(spec)
	f.mu.Lock()
	f.windows = append(f.windows, w)
	f.mu.Unlock()

	if f.AutoReady {
		w.EmitReady()
	}
	return w, nil
}

// Windows returns every window created so far.
func (f *FakeFactory) Windows() []*FakeWindow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeWindow(nil), f.windows...)
}
