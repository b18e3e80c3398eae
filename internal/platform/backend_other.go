//go:build !windows && !linux

package platform

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

type stubBackend struct {
	events  chan Event
	pointer chan PointerEvent
}

// NewBackend returns a backend that fails at Start on platforms without a
// window-system implementation.
func NewBackend() Backend {
	return &stubBackend{
		events:  make(chan Event),
		pointer: make(chan PointerEvent),
	}
}

func (b *stubBackend) errUnsupported() error {
	return fmt.Errorf("no window-system backend for %s", runtime.GOOS)
}

func (b *stubBackend) Start(ctx context.Context) error { return b.errUnsupported() }
func (b *stubBackend) Stop()                           {}
func (b *stubBackend) Events() <-chan Event            { return b.events }
func (b *stubBackend) Pointer() <-chan PointerEvent    { return b.pointer }

func (b *stubBackend) Enumerate() ([]WindowHandle, error)        { return nil, b.errUnsupported() }
func (b *stubBackend) IsWindow(WindowHandle) bool                { return false }
func (b *stubBackend) IsVisible(WindowHandle) bool               { return false }
func (b *stubBackend) ProbeWindow(WindowHandle) (Probe, error)   { return Probe{}, b.errUnsupported() }
func (b *stubBackend) Title(WindowHandle) string                 { return "" }
func (b *stubBackend) ClassName(WindowHandle) string             { return "" }
func (b *stubBackend) Process(WindowHandle) (ProcessInfo, error) { return Unattributed(), nil }
func (b *stubBackend) Foreground() WindowHandle                  { return 0 }
func (b *stubBackend) Focus(WindowHandle) error                  { return b.errUnsupported() }
func (b *stubBackend) Raise(WindowHandle) error                  { return b.errUnsupported() }

func (b *stubBackend) Geometry(WindowHandle) (Rect, WindowState, error) {
	return Rect{}, StateNormal, b.errUnsupported()
}

func (b *stubBackend) StyleSnapshot(WindowHandle) (Style, error) { return 0, b.errUnsupported() }
func (b *stubBackend) RestoreStyle(WindowHandle, Style) error    { return b.errUnsupported() }
func (b *stubBackend) EnterGhostStyle(WindowHandle) error        { return b.errUnsupported() }
func (b *stubBackend) PrepareFade(WindowHandle) error            { return b.errUnsupported() }
func (b *stubBackend) SetAlpha(WindowHandle, uint8) error        { return b.errUnsupported() }
func (b *stubBackend) Position(WindowHandle) (Point, error)      { return Point{}, b.errUnsupported() }
func (b *stubBackend) MoveTo(WindowHandle, Point) error          { return b.errUnsupported() }
func (b *stubBackend) OffscreenPoint() Point                     { return Point{X: 16384} }
func (b *stubBackend) BeginBatch(int) (Batch, error)             { return nil, b.errUnsupported() }

func (b *stubBackend) DesktopIconsVisible() (bool, error) { return false, b.errUnsupported() }
func (b *stubBackend) SetDesktopIconsVisible(bool) error  { return b.errUnsupported() }
func (b *stubBackend) DesktopSelectionActive() bool       { return false }
func (b *stubBackend) DoubleClickInterval() time.Duration { return 500 * time.Millisecond }
