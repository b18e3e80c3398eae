// Package tracker maintains the live set of tracked top-level windows. It
// subscribes to OS window lifecycle and location notifications plus a global
// pointer-button hook, classifies candidate windows against the policy
// ruleset, and fans typed events out to any number of subscribers.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/policy"
	"github.com/sceneshift/sceneshift/internal/window"
)

// UpdateKind classifies window update events.
type UpdateKind int

const (
	UpdateShow UpdateKind = iota
	UpdateHide
	UpdateMinimizeStart
	UpdateMinimizeEnd
	UpdateForeground
	UpdateMove
	UpdateMoveStart
	UpdateMoveEnd
)

// String returns the update kind name.
func (k UpdateKind) String() string {
	switch k {
	case UpdateShow:
		return "show"
	case UpdateHide:
		return "hide"
	case UpdateMinimizeStart:
		return "minimize-start"
	case UpdateMinimizeEnd:
		return "minimize-end"
	case UpdateForeground:
		return "foreground"
	case UpdateMove:
		return "move"
	case UpdateMoveStart:
		return "move-start"
	case UpdateMoveEnd:
		return "move-end"
	default:
		return "unknown"
	}
}

// Listener receives hub events. Nil fields are skipped. Callbacks are invoked
// from the hub's consuming goroutine (or, for DesktopClick, from a timer
// goroutine) and must not block.
type Listener struct {
	// Created fires when a window enters tracking. firstCreate is false when
	// the handle was tracked before and is being re-registered (for example a
	// window that was unregistered while cloaked and has been shown again).
	Created        func(w *window.TrackedWindow, firstCreate bool)
	Destroyed      func(w *window.TrackedWindow)
	Updated        func(w *window.TrackedWindow, kind UpdateKind)
	Focused        func(w *window.TrackedWindow)
	Moved          func(w *window.TrackedWindow)
	UntrackedFocus func(h platform.WindowHandle)
	// DesktopClick fires after a confirmed short single click on empty
	// desktop shell surface. The handle is the shell window that was clicked.
	DesktopClick func(h platform.WindowHandle)
	// Floated fires when the focused window's scene participation is toggled.
	Floated func(w *window.TrackedWindow, floating bool)
}

// Source is the platform surface the hub consumes. Implemented by the
// platform backend; it also satisfies window.Reader.
type Source interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan platform.Event
	Pointer() <-chan platform.PointerEvent

	Enumerate() ([]platform.WindowHandle, error)
	ProbeWindow(platform.WindowHandle) (platform.Probe, error)
	ClassName(platform.WindowHandle) string
	Title(platform.WindowHandle) string
	Geometry(platform.WindowHandle) (platform.Rect, platform.WindowState, error)
	Process(platform.WindowHandle) (platform.ProcessInfo, error)
	Foreground() platform.WindowHandle
	DoubleClickInterval() time.Duration
	BeginBatch(capacity int) (platform.Batch, error)
}

// Hub is the window tracking engine.
type Hub struct {
	src           Source
	rules         *policy.Ruleset
	shortClickMax time.Duration

	mu        sync.Mutex
	windows   map[platform.WindowHandle]*window.TrackedWindow
	seen      map[platform.WindowHandle]bool
	floating  map[platform.WindowHandle]bool
	listeners []Listener
	started   bool

	click clickState

	cancel context.CancelFunc
	done   chan struct{}
}

// clickState is the pending desktop-click state. A single lock covers the
// button-down, button-up and delayed-confirmation paths.
type clickState struct {
	mu         sync.Mutex
	lastDown   time.Time
	downAt     time.Time
	suppressUp bool
	pendingSeq uint64
}

// New creates a hub over the given source and classification policy.
// shortClickMax is the longest press still counted as a desktop click.
func New(src Source, rules *policy.Ruleset, shortClickMax time.Duration) *Hub {
	return &Hub{
		src:           src,
		rules:         rules,
		shortClickMax: shortClickMax,
		windows:       make(map[platform.WindowHandle]*window.TrackedWindow),
		seen:          make(map[platform.WindowHandle]bool),
		floating:      make(map[platform.WindowHandle]bool),
	}
}

// UpdateRules swaps the classification ruleset. Already-tracked windows keep
// their classification; the new rules apply to windows discovered afterwards.
func (h *Hub) UpdateRules(rules *policy.Ruleset) {
	h.mu.Lock()
	h.rules = rules
	h.mu.Unlock()
}

func (h *Hub) ruleset() *policy.Ruleset {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rules
}

// Subscribe registers a listener for hub events.
func (h *Hub) Subscribe(l Listener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()
}

// Start installs the OS subscriptions and pointer hook, registers all
// currently open classification-eligible windows without firing creation
// events, and starts consuming notifications. A hook installation rejection
// is fatal and leaves nothing installed.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	if err := h.src.Start(runCtx); err != nil {
		cancel()
		h.mu.Lock()
		h.started = false
		h.mu.Unlock()
		return fmt.Errorf("failed to install window event source: %w", err)
	}

	// Pre-existing windows enter the registry silently.
	if handles, err := h.src.Enumerate(); err == nil {
		h.mu.Lock()
		for _, hd := range handles {
			if _, known := h.windows[hd]; known {
				continue
			}
			if h.register(hd) != nil {
				h.seen[hd] = true
			}
		}
		h.mu.Unlock()
	}

	h.cancel = cancel
	h.done = make(chan struct{})
	go h.run()
	return nil
}

// Stop unsubscribes everything and clears the tracked-window map. Idempotent.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	cancel := h.cancel
	done := h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.src.Stop()
	if done != nil {
		<-done
	}

	h.mu.Lock()
	h.windows = make(map[platform.WindowHandle]*window.TrackedWindow)
	h.seen = make(map[platform.WindowHandle]bool)
	h.floating = make(map[platform.WindowHandle]bool)
	h.mu.Unlock()
}

func (h *Hub) run() {
	defer close(h.done)
	events := h.src.Events()
	pointer := h.src.Pointer()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.handleEvent(ev)
		case pe, ok := <-pointer:
			if !ok {
				return
			}
			h.handlePointer(pe)
		}
	}
}

// register creates and stores a tracked window for an eligible handle.
// Caller holds h.mu. Returns nil if the handle is not a candidate.
func (h *Hub) register(hd platform.WindowHandle) *window.TrackedWindow {
	if !h.candidateLocked(hd, nil) {
		return nil
	}
	proc, err := h.src.Process(hd)
	if err != nil {
		// Attribution failure: excluded from candidacy, never fatal.
		return nil
	}
	tw := window.New(hd, h.src.ClassName(hd), proc, h.src)
	h.windows[hd] = tw
	return tw
}

// candidateLocked applies the classification predicate. Any failure reading
// window properties excludes the window rather than propagating.
func (h *Hub) candidateLocked(hd platform.WindowHandle, tw *window.TrackedWindow) bool {
	probe, err := h.src.ProbeWindow(hd)
	if err != nil {
		return false
	}

	manuallyHidden := tw != nil && tw.ManualHidden()
	if !probe.HasChrome() && !manuallyHidden {
		return false
	}
	if probe.Cloaked {
		return false
	}
	if probe.ToolWindow || probe.SwitcherExcluded {
		return false
	}
	if h.rules.DeniedClass(h.src.ClassName(hd)) {
		return false
	}

	var proc platform.ProcessInfo
	if tw != nil {
		proc = tw.Process()
	} else {
		proc, err = h.src.Process(hd)
		if err != nil {
			return false
		}
	}
	if !proc.Attributed || h.rules.DeniedProcess(proc.Name) {
		return false
	}
	return true
}

// IsCandidate reports whether a handle currently passes classification.
func (h *Hub) IsCandidate(hd platform.WindowHandle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.candidateLocked(hd, h.windows[hd])
}

func (h *Hub) handleEvent(ev platform.Event) {
	switch ev.Kind {
	case platform.EventShown:
		h.onShown(ev.Handle)
	case platform.EventDestroyed:
		h.onDestroyed(ev.Handle, true)
	case platform.EventCloaked:
		h.onCloaked(ev.Handle)
	case platform.EventUncloaked:
		h.emitUpdateIfKnown(ev.Handle, UpdateShow)
	case platform.EventMinimizeStart:
		h.emitUpdateIfKnown(ev.Handle, UpdateMinimizeStart)
	case platform.EventMinimizeEnd:
		h.emitUpdateIfKnown(ev.Handle, UpdateMinimizeEnd)
	case platform.EventForeground:
		h.onForeground(ev.Handle)
	case platform.EventMoveSizeStart:
		h.onMoveStart(ev.Handle)
	case platform.EventLocationChange:
		h.onLocationChange(ev.Handle)
	case platform.EventMoveSizeEnd:
		h.onMoveEnd(ev.Handle)
	}
}

func (h *Hub) onShown(hd platform.WindowHandle) {
	h.mu.Lock()
	if tw, known := h.windows[hd]; known {
		listeners := h.snapshotListeners()
		h.mu.Unlock()
		for _, l := range listeners {
			if l.Updated != nil {
				l.Updated(tw, UpdateShow)
			}
		}
		return
	}

	tw := h.register(hd)
	if tw == nil {
		h.mu.Unlock()
		return
	}
	first := !h.seen[hd]
	h.seen[hd] = true
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, l := range listeners {
		if l.Created != nil {
			l.Created(tw, first)
		}
	}
}

func (h *Hub) onDestroyed(hd platform.WindowHandle, trueDestroy bool) {
	h.mu.Lock()
	tw, known := h.windows[hd]
	if !known {
		h.mu.Unlock()
		return
	}
	delete(h.windows, hd)
	delete(h.floating, hd)
	if trueDestroy {
		// The OS may reuse the handle for an unrelated window now.
		delete(h.seen, hd)
	}
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, l := range listeners {
		if l.Destroyed != nil {
			l.Destroyed(tw)
		}
	}
}

// onCloaked routes the OS's own hide mechanism. A window under manual hide
// that gets cloaked is fully unregistered: the cloak means the OS took the
// window away for real and must not be confused with the engine's hide.
func (h *Hub) onCloaked(hd platform.WindowHandle) {
	h.mu.Lock()
	tw, known := h.windows[hd]
	h.mu.Unlock()
	if !known {
		return
	}
	if tw.ManualHidden() {
		h.onDestroyed(hd, false)
		return
	}
	h.emitUpdateIfKnown(hd, UpdateHide)
}

func (h *Hub) onForeground(hd platform.WindowHandle) {
	h.mu.Lock()
	tw, known := h.windows[hd]
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	if !known {
		for _, l := range listeners {
			if l.UntrackedFocus != nil {
				l.UntrackedFocus(hd)
			}
		}
		return
	}
	for _, l := range listeners {
		if l.Updated != nil {
			l.Updated(tw, UpdateForeground)
		}
		if l.Focused != nil {
			l.Focused(tw)
		}
	}
}

func (h *Hub) onMoveStart(hd platform.WindowHandle) {
	h.mu.Lock()
	tw, known := h.windows[hd]
	h.mu.Unlock()
	if !known {
		return
	}
	tw.SetMouseMoving(true)
	if rect, _, err := h.src.Geometry(hd); err == nil {
		tw.StoreLocation(platform.Point{X: rect.X, Y: rect.Y})
	}
	h.emitUpdateIfKnown(hd, UpdateMoveStart)
}

func (h *Hub) onLocationChange(hd platform.WindowHandle) {
	h.mu.Lock()
	tw, known := h.windows[hd]
	listeners := h.snapshotListeners()
	h.mu.Unlock()
	if !known {
		return
	}
	for _, l := range listeners {
		if l.Updated != nil {
			l.Updated(tw, UpdateMove)
		}
		if l.Moved != nil {
			l.Moved(tw)
		}
	}
}

func (h *Hub) onMoveEnd(hd platform.WindowHandle) {
	h.mu.Lock()
	tw, known := h.windows[hd]
	h.mu.Unlock()
	if !known {
		return
	}
	tw.SetMouseMoving(false)
	h.emitUpdateIfKnown(hd, UpdateMoveEnd)
}

func (h *Hub) emitUpdateIfKnown(hd platform.WindowHandle, kind UpdateKind) {
	h.mu.Lock()
	tw, known := h.windows[hd]
	listeners := h.snapshotListeners()
	h.mu.Unlock()
	if !known {
		return
	}
	for _, l := range listeners {
		if l.Updated != nil {
			l.Updated(tw, kind)
		}
	}
}

// snapshotListeners returns the listener slice for iteration outside h.mu.
// Caller holds h.mu.
func (h *Hub) snapshotListeners() []Listener {
	out := make([]Listener, len(h.listeners))
	copy(out, h.listeners)
	return out
}

// handlePointer implements desktop-click detection. A down within the OS
// double-click interval of the previous down is a double click and cancels
// any pending short-click signal; a short up over desktop shell surface
// schedules the signal only after the double-click interval has fully elapsed
// with no cancellation.
func (h *Hub) handlePointer(pe platform.PointerEvent) {
	if pe.Down {
		h.onButtonDown(pe.At)
		return
	}
	h.onButtonUp(pe.At)
}

func (h *Hub) onButtonDown(at time.Time) {
	interval := h.src.DoubleClickInterval()
	h.click.mu.Lock()
	if !h.click.lastDown.IsZero() && at.Sub(h.click.lastDown) < interval {
		h.click.pendingSeq++
		h.click.suppressUp = true
	} else {
		h.click.suppressUp = false
	}
	h.click.lastDown = at
	h.click.downAt = at
	h.click.mu.Unlock()
}

func (h *Hub) onButtonUp(at time.Time) {
	// Whatever was marked as dragged gets its move-end regardless of click
	// duration; the OS move-size-end notification can lag behind the button.
	h.releaseDraggedWindows()

	h.click.mu.Lock()
	suppressed := h.click.suppressUp
	h.click.suppressUp = false
	elapsed := at.Sub(h.click.downAt)
	h.click.mu.Unlock()

	if suppressed || elapsed >= h.shortClickMax {
		return
	}

	fg := h.src.Foreground()
	if fg == 0 || !h.ruleset().IsDesktopClass(h.src.ClassName(fg)) {
		return
	}

	interval := h.src.DoubleClickInterval()
	h.click.mu.Lock()
	seq := h.click.pendingSeq
	h.click.mu.Unlock()

	time.AfterFunc(interval, func() {
		h.click.mu.Lock()
		confirmed := h.click.pendingSeq == seq
		h.click.mu.Unlock()
		if !confirmed {
			return
		}
		h.mu.Lock()
		listeners := h.snapshotListeners()
		h.mu.Unlock()
		for _, l := range listeners {
			if l.DesktopClick != nil {
				l.DesktopClick(fg)
			}
		}
	})
}

func (h *Hub) releaseDraggedWindows() {
	h.mu.Lock()
	var dragged []*window.TrackedWindow
	for _, tw := range h.windows {
		if tw.MouseMoving() {
			dragged = append(dragged, tw)
		}
	}
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, tw := range dragged {
		tw.SetMouseMoving(false)
		for _, l := range listeners {
			if l.Updated != nil {
				l.Updated(tw, UpdateMoveEnd)
			}
		}
	}
}

// Windows returns the tracked windows ordered by handle.
func (h *Hub) Windows() []*window.TrackedWindow {
	h.mu.Lock()
	out := make([]*window.TrackedWindow, 0, len(h.windows))
	for _, tw := range h.windows {
		out = append(out, tw)
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Handle() < out[j].Handle() })
	return out
}

// Lookup returns the tracked window for a handle.
func (h *Hub) Lookup(hd platform.WindowHandle) (*window.TrackedWindow, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tw, ok := h.windows[hd]
	return tw, ok
}

// IsFloating reports whether the window's scene participation is toggled off.
func (h *Hub) IsFloating(hd platform.WindowHandle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.floating[hd]
}

// ToggleFocusedFloat flips the focused window's participation in scene logic.
// A floated window is removed from its scene but stays tracked and visible;
// toggling again reinstates it.
func (h *Hub) ToggleFocusedFloat() error {
	fg := h.src.Foreground()
	h.mu.Lock()
	tw, known := h.windows[fg]
	if !known {
		h.mu.Unlock()
		return fmt.Errorf("foreground window is not tracked")
	}
	floating := !h.floating[fg]
	if floating {
		h.floating[fg] = true
	} else {
		delete(h.floating, fg)
	}
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, l := range listeners {
		if l.Floated != nil {
			l.Floated(tw, floating)
		}
	}
	return nil
}

// Drop removes a stale handle from the registry and routes it as destroyed.
// Used by the maintenance reconciler when a handle no longer resolves.
func (h *Hub) Drop(hd platform.WindowHandle) {
	h.onDestroyed(hd, true)
}

// BeginReposition opens a batched window-position-update scope so OS repaint
// is deferred until the scope ends.
func (h *Hub) BeginReposition(capacity int) (platform.Batch, error) {
	return h.src.BeginBatch(capacity)
}
