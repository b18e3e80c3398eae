package platform

import (
	"context"
	"time"
)

// WindowHandle is a platform-neutral identifier for a top-level window. It is
// stable for the window's lifetime and is never reused while the window is
// tracked.
type WindowHandle uintptr

// Point is a position in virtual-screen coordinates. Coordinates can be
// negative (secondary monitor left of or above the primary).
type Point struct {
	X int
	Y int
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// WindowState is the coarse show state of a window.
type WindowState int

const (
	StateNormal WindowState = iota
	StateMinimized
	StateMaximized
)

// String returns the state name.
func (s WindowState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateMinimized:
		return "minimized"
	case StateMaximized:
		return "maximized"
	default:
		return "unknown"
	}
}

// Style is an opaque snapshot of a window's platform style bits. It is
// captured before the engine mutates a window and restored verbatim later;
// callers must not interpret its value.
type Style uint64

// Probe is a one-shot read of the window properties that drive
// classification. Any field may be stale the instant it is returned.
type Probe struct {
	Visible          bool
	Cloaked          bool
	ToolWindow       bool
	SwitcherExcluded bool

	TitleBar     bool
	SystemMenu   bool
	MinimizeBox  bool
	MaximizeBox  bool
	SizableFrame bool
}

// HasChrome reports whether the window exposes at least one piece of standard
// window chrome. Applications drawing custom chrome often clear most legacy
// style bits, so any single bit counts.
func (p Probe) HasChrome() bool {
	return p.TitleBar || p.SystemMenu || p.MinimizeBox || p.MaximizeBox || p.SizableFrame
}

// UnattributedName is the sentinel process name used when the owning process
// of a window cannot be resolved.
const UnattributedName = "<unresolved>"

// ProcessInfo identifies the process owning a window, captured once at
// discovery time.
type ProcessInfo struct {
	PID        uint32
	Name       string
	Path       string
	Attributed bool
}

// Unattributed returns the sentinel process identity for windows whose owner
// could not be resolved.
func Unattributed() ProcessInfo {
	return ProcessInfo{Name: UnattributedName}
}

// EventKind enumerates the window lifecycle and location notifications the
// backend translates from the native event source.
type EventKind int

const (
	EventShown EventKind = iota
	EventDestroyed
	EventCloaked
	EventUncloaked
	EventMinimizeStart
	EventMinimizeEnd
	EventForeground
	EventMoveSizeStart
	EventMoveSizeEnd
	EventLocationChange
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventShown:
		return "shown"
	case EventDestroyed:
		return "destroyed"
	case EventCloaked:
		return "cloaked"
	case EventUncloaked:
		return "uncloaked"
	case EventMinimizeStart:
		return "minimize-start"
	case EventMinimizeEnd:
		return "minimize-end"
	case EventForeground:
		return "foreground"
	case EventMoveSizeStart:
		return "move-start"
	case EventMoveSizeEnd:
		return "move-end"
	case EventLocationChange:
		return "location-change"
	default:
		return "unknown"
	}
}

// Event is a single translated window notification.
type Event struct {
	Kind   EventKind
	Handle WindowHandle
}

// PointerEvent is a primary-button transition from the global pointer hook.
type PointerEvent struct {
	Down bool
	At   time.Time
}

// Batch groups multiple window moves so the window system repaints once when
// the batch ends instead of once per move.
type Batch interface {
	Move(WindowHandle, Point) error
	End() error
}

// Backend abstracts every window-system operation the engine needs. All
// methods are safe for concurrent use. Event and pointer notifications are
// produced on a dedicated backend-owned thread and delivered through the
// channels returned by Events and Pointer.
type Backend interface {
	// Start installs the native event subscriptions and the global pointer
	// hook. A pointer hook rejection is returned as an error with no partial
	// subscriptions left installed.
	Start(ctx context.Context) error
	// Stop removes all subscriptions and closes the event channels. Idempotent.
	Stop()
	Events() <-chan Event
	Pointer() <-chan PointerEvent

	Enumerate() ([]WindowHandle, error)
	IsWindow(WindowHandle) bool
	IsVisible(WindowHandle) bool
	ProbeWindow(WindowHandle) (Probe, error)
	Title(WindowHandle) string
	ClassName(WindowHandle) string
	Geometry(WindowHandle) (Rect, WindowState, error)
	Process(WindowHandle) (ProcessInfo, error)
	Foreground() WindowHandle
	Focus(WindowHandle) error
	Raise(WindowHandle) error

	// StyleSnapshot captures the window's style bits for later exact restore.
	StyleSnapshot(WindowHandle) (Style, error)
	RestoreStyle(WindowHandle, Style) error
	// EnterGhostStyle makes the window layered and input-transparent so it can
	// be faded out and clicked through.
	EnterGhostStyle(WindowHandle) error
	// PrepareFade ensures the window can animate alpha while accepting input
	// again: layered stays set, input transparency is cleared.
	PrepareFade(WindowHandle) error
	SetAlpha(WindowHandle, uint8) error
	Position(WindowHandle) (Point, error)
	MoveTo(WindowHandle, Point) error
	// OffscreenPoint returns a position guaranteed to lie outside all monitor
	// bounds, used when a window does not honor alpha.
	OffscreenPoint() Point
	BeginBatch(capacity int) (Batch, error)

	DesktopIconsVisible() (bool, error)
	SetDesktopIconsVisible(bool) error
	// DesktopSelectionActive reports whether any desktop icon is currently
	// selected, used to distinguish icon clicks from empty-surface clicks.
	DesktopSelectionActive() bool
	DoubleClickInterval() time.Duration
}
