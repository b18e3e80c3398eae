//go:build linux

package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/sceneshift/sceneshift/internal/x11"
)

const (
	stateHidden        = "_NET_WM_STATE_HIDDEN"
	stateSkipTaskbar   = "_NET_WM_STATE_SKIP_TASKBAR"
	stateMaximizedVert = "_NET_WM_STATE_MAXIMIZED_VERT"
	stateMaximizedHorz = "_NET_WM_STATE_MAXIMIZED_HORZ"
	typeNormal         = "_NET_WM_WINDOW_TYPE_NORMAL"
	typeDialog         = "_NET_WM_WINDOW_TYPE_DIALOG"
)

// styleOpacitySet marks a snapshot whose window carried an explicit opacity
// property; the low 32 bits hold the value to restore.
const styleOpacitySet = Style(1) << 32

type x11Backend struct {
	mu      sync.Mutex
	conn    *x11.Connection
	running bool

	activeAtom xproto.Atom
	deskWin    xproto.Window

	events  chan Event
	pointer chan PointerEvent
	done    chan struct{}
}

// NewBackend returns the X11 implementation of Backend.
func NewBackend() Backend {
	return &x11Backend{}
}

func (b *x11Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return fmt.Errorf("backend already started")
	}

	conn, err := x11.NewConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}

	if err := conn.SelectRootEvents(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to root window events: %w", err)
	}

	atom, err := conn.Atom("_NET_ACTIVE_WINDOW")
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	b.conn = conn
	b.activeAtom = atom
	b.deskWin, _ = conn.DesktopWindow()
	// The event loop closes these on exit, so a restarted backend needs
	// fresh ones.
	b.events = make(chan Event, 256)
	b.pointer = make(chan PointerEvent, 64)
	b.done = make(chan struct{})
	b.running = true

	go b.eventLoop(conn)
	return nil
}

func (b *x11Backend) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	conn := b.conn
	b.mu.Unlock()

	conn.Close()
	<-b.done
}

func (b *x11Backend) Events() <-chan Event         { return b.events }
func (b *x11Backend) Pointer() <-chan PointerEvent { return b.pointer }

// eventLoop drains the X connection until it is closed, translating raw
// protocol events into backend notifications. Runs on its own goroutine; the
// xgb connection serializes the underlying socket reads.
func (b *x11Backend) eventLoop(conn *x11.Connection) {
	defer func() {
		close(b.events)
		close(b.pointer)
		close(b.done)
	}()

	xc := conn.XUtil.Conn()
	for {
		ev, xerr := xc.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			continue
		}

		switch e := ev.(type) {
		case xproto.MapNotifyEvent:
			b.push(Event{Kind: EventShown, Handle: WindowHandle(e.Window)})
		case xproto.UnmapNotifyEvent:
			b.push(Event{Kind: EventCloaked, Handle: WindowHandle(e.Window)})
		case xproto.DestroyNotifyEvent:
			b.push(Event{Kind: EventDestroyed, Handle: WindowHandle(e.Window)})
		case xproto.ConfigureNotifyEvent:
			b.push(Event{Kind: EventLocationChange, Handle: WindowHandle(e.Window)})
		case xproto.PropertyNotifyEvent:
			if e.Atom == b.activeAtom {
				active, err := conn.ActiveWindow()
				if err == nil {
					b.push(Event{Kind: EventForeground, Handle: WindowHandle(active)})
				}
			}
		case xproto.ButtonPressEvent:
			if e.Detail == 1 {
				b.pushPointer(PointerEvent{Down: true, At: time.Now()})
			}
		case xproto.ButtonReleaseEvent:
			if e.Detail == 1 {
				b.pushPointer(PointerEvent{Down: false, At: time.Now()})
			}
		}
	}
}

func (b *x11Backend) push(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

func (b *x11Backend) pushPointer(ev PointerEvent) {
	select {
	case b.pointer <- ev:
	default:
	}
}

func (b *x11Backend) Enumerate() ([]WindowHandle, error) {
	clients, err := b.conn.ListClients()
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	handles := make([]WindowHandle, 0, len(clients))
	for _, win := range clients {
		handles = append(handles, WindowHandle(win))
	}
	return handles, nil
}

func (b *x11Backend) IsWindow(h WindowHandle) bool {
	_, err := b.conn.IsViewable(xproto.Window(h))
	return err == nil
}

func (b *x11Backend) IsVisible(h WindowHandle) bool {
	viewable, err := b.conn.IsViewable(xproto.Window(h))
	return err == nil && viewable
}

func (b *x11Backend) ProbeWindow(h WindowHandle) (Probe, error) {
	win := xproto.Window(h)
	viewable, err := b.conn.IsViewable(win)
	if err != nil {
		return Probe{}, fmt.Errorf("window %#x gone: %w", h, err)
	}

	// EWMH says an untyped window is treated as normal.
	tool := false
	types := b.conn.WindowTypes(win)
	if len(types) > 0 {
		tool = true
		for _, t := range types {
			if t == typeNormal || t == typeDialog {
				tool = false
				break
			}
		}
	}

	skip := false
	for _, s := range b.conn.WindowStates(win) {
		if s == stateSkipTaskbar {
			skip = true
		}
	}

	// X11 has no per-window chrome style bits; managed normal windows get
	// window-manager decorations.
	return Probe{
		Visible:          viewable,
		ToolWindow:       tool,
		SwitcherExcluded: skip,
		TitleBar:         !tool,
		SystemMenu:       !tool,
	}, nil
}

func (b *x11Backend) Title(h WindowHandle) string {
	return b.conn.WindowTitle(xproto.Window(h))
}

func (b *x11Backend) ClassName(h WindowHandle) string {
	return b.conn.WindowClass(xproto.Window(h))
}

func (b *x11Backend) Geometry(h WindowHandle) (Rect, WindowState, error) {
	win := xproto.Window(h)
	geom, err := b.conn.WindowGeometry(win)
	if err != nil {
		return Rect{}, StateNormal, err
	}

	state := StateNormal
	var maxV, maxH bool
	for _, s := range b.conn.WindowStates(win) {
		switch s {
		case stateHidden:
			state = StateMinimized
		case stateMaximizedVert:
			maxV = true
		case stateMaximizedHorz:
			maxH = true
		}
	}
	if state == StateNormal && maxV && maxH {
		state = StateMaximized
	}

	return Rect{X: geom.X, Y: geom.Y, Width: geom.Width, Height: geom.Height}, state, nil
}

func (b *x11Backend) Process(h WindowHandle) (ProcessInfo, error) {
	pid, err := b.conn.WindowPID(xproto.Window(h))
	if err != nil || pid == 0 {
		return Unattributed(), nil
	}

	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		comm, cerr := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
		if cerr != nil {
			return ProcessInfo{PID: pid, Name: UnattributedName}, nil
		}
		name := strings.TrimSpace(string(comm))
		return ProcessInfo{PID: pid, Name: name, Attributed: true}, nil
	}

	return ProcessInfo{
		PID:        pid,
		Name:       filepath.Base(path),
		Path:       path,
		Attributed: true,
	}, nil
}

func (b *x11Backend) Foreground() WindowHandle {
	active, err := b.conn.ActiveWindow()
	if err != nil {
		return 0
	}
	return WindowHandle(active)
}

func (b *x11Backend) Focus(h WindowHandle) error {
	return b.conn.ActivateWindow(xproto.Window(h))
}

func (b *x11Backend) Raise(h WindowHandle) error {
	return b.conn.RaiseWindow(xproto.Window(h))
}

func (b *x11Backend) StyleSnapshot(h WindowHandle) (Style, error) {
	if val, ok := b.conn.Opacity(xproto.Window(h)); ok {
		return styleOpacitySet | Style(val), nil
	}
	return 0, nil
}

func (b *x11Backend) RestoreStyle(h WindowHandle, s Style) error {
	win := xproto.Window(h)
	if s&styleOpacitySet != 0 {
		return b.conn.SetOpacity(win, uint32(s))
	}
	return b.conn.ClearOpacity(win)
}

// EnterGhostStyle is a no-op on X11: the opacity property needs no style
// change, and input transparency has no EWMH equivalent. Fully faded windows
// are additionally parked off screen, which keeps them out of click reach.
func (b *x11Backend) EnterGhostStyle(h WindowHandle) error {
	return nil
}

func (b *x11Backend) PrepareFade(h WindowHandle) error {
	return nil
}

func (b *x11Backend) SetAlpha(h WindowHandle, alpha uint8) error {
	// Spread the 8-bit alpha across the 32-bit opacity range so 255 maps to
	// fully opaque.
	return b.conn.SetOpacity(xproto.Window(h), uint32(alpha)*0x01010101)
}

func (b *x11Backend) Position(h WindowHandle) (Point, error) {
	geom, err := b.conn.WindowGeometry(xproto.Window(h))
	if err != nil {
		return Point{}, err
	}
	return Point{X: geom.X, Y: geom.Y}, nil
}

func (b *x11Backend) MoveTo(h WindowHandle, p Point) error {
	return b.conn.MoveWindow(xproto.Window(h), p.X, p.Y)
}

func (b *x11Backend) OffscreenPoint() Point {
	geom, err := b.conn.RootGeometry()
	if err != nil {
		return Point{X: 16384, Y: 0}
	}
	return Point{X: geom.Width + 4096, Y: 0}
}

type x11Batch struct {
	backend  *x11Backend
	firstErr error
}

func (b *x11Backend) BeginBatch(capacity int) (Batch, error) {
	return &x11Batch{backend: b}, nil
}

func (bt *x11Batch) Move(h WindowHandle, p Point) error {
	if err := bt.backend.MoveTo(h, p); err != nil && bt.firstErr == nil {
		bt.firstErr = err
	}
	return nil
}

func (bt *x11Batch) End() error {
	return bt.firstErr
}

func (b *x11Backend) DesktopIconsVisible() (bool, error) {
	if b.deskWin == 0 {
		return false, fmt.Errorf("no desktop icon window")
	}
	return b.conn.IsViewable(b.deskWin)
}

func (b *x11Backend) SetDesktopIconsVisible(visible bool) error {
	if b.deskWin == 0 {
		return fmt.Errorf("no desktop icon window")
	}
	if visible {
		return b.conn.MapWindow(b.deskWin)
	}
	return b.conn.UnmapWindow(b.deskWin)
}

// DesktopSelectionActive always reports false: X11 exposes no way to query the
// file manager's icon selection.
func (b *x11Backend) DesktopSelectionActive() bool {
	return false
}

func (b *x11Backend) DoubleClickInterval() time.Duration {
	return 400 * time.Millisecond
}
