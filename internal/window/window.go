// Package window wraps a single tracked top-level window: stable identity,
// immutable process attribution, live geometry reads, and the per-window
// flags the scene engine maintains.
package window

import (
	"strconv"
	"sync"

	"github.com/sceneshift/sceneshift/internal/platform"
)

// Reader provides the live property reads a tracked window performs on
// demand. Implemented by the platform backend.
type Reader interface {
	Title(platform.WindowHandle) string
	Geometry(platform.WindowHandle) (platform.Rect, platform.WindowState, error)
}

// TrackedWindow is a single window under scene management. Identity, class
// and process attribution are captured once at discovery; title and geometry
// are read live on every access.
//
// TrackedWindow values are owned exclusively by the tracking engine's
// registry; other components hold them as non-owning references.
type TrackedWindow struct {
	handle  platform.WindowHandle
	class   string
	process platform.ProcessInfo
	reader  Reader

	mu           sync.Mutex
	manualHidden bool
	mouseMoving  bool
	stored       *platform.Point
}

// New creates a tracked window. The process info is captured by the caller at
// discovery time and never refreshed.
func New(handle platform.WindowHandle, class string, process platform.ProcessInfo, reader Reader) *TrackedWindow {
	return &TrackedWindow{
		handle:  handle,
		class:   class,
		process: process,
		reader:  reader,
	}
}

// Handle returns the opaque OS window handle.
func (w *TrackedWindow) Handle() platform.WindowHandle { return w.handle }

// Class returns the window class name captured at discovery.
func (w *TrackedWindow) Class() string { return w.class }

// Process returns the owning process attribution captured at discovery.
func (w *TrackedWindow) Process() platform.ProcessInfo { return w.process }

// GroupKey returns the scene membership key: the owning process id as text.
func (w *TrackedWindow) GroupKey() string {
	return formatPID(w.process.PID)
}

// Title reads the current window title.
func (w *TrackedWindow) Title() string {
	return w.reader.Title(w.handle)
}

// Geometry reads the current bounds and show state.
func (w *TrackedWindow) Geometry() (platform.Rect, platform.WindowState, error) {
	return w.reader.Geometry(w.handle)
}

// Minimized reads whether the window is currently minimized. A read failure
// counts as minimized so visibility operations skip the window.
func (w *TrackedWindow) Minimized() bool {
	_, state, err := w.reader.Geometry(w.handle)
	if err != nil {
		return true
	}
	return state == platform.StateMinimized
}

// SetManualHidden records that this engine hid (or revealed) the window.
func (w *TrackedWindow) SetManualHidden(hidden bool) {
	w.mu.Lock()
	w.manualHidden = hidden
	w.mu.Unlock()
}

// ManualHidden reports whether this engine hid the window.
func (w *TrackedWindow) ManualHidden() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.manualHidden
}

// SetMouseMoving marks the window as being dragged by the user.
func (w *TrackedWindow) SetMouseMoving(moving bool) {
	w.mu.Lock()
	w.mouseMoving = moving
	w.mu.Unlock()
}

// MouseMoving reports whether the window is currently being dragged.
func (w *TrackedWindow) MouseMoving() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mouseMoving
}

// StoreLocation captures a position to be consumed at most once later, taken
// at move-start so a cross-scene move can restore the pre-move position.
func (w *TrackedWindow) StoreLocation(p platform.Point) {
	w.mu.Lock()
	w.stored = &p
	w.mu.Unlock()
}

// TakeStoredLocation consumes the stored location, if any.
func (w *TrackedWindow) TakeStoredLocation() (platform.Point, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stored == nil {
		return platform.Point{}, false
	}
	p := *w.stored
	w.stored = nil
	return p, true
}

func formatPID(pid uint32) string {
	return strconv.FormatUint(uint64(pid), 10)
}
