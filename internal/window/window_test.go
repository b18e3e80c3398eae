package window

import (
	"errors"
	"testing"

	"github.com/sceneshift/sceneshift/internal/platform"
)

type fakeReader struct {
	title string
	rect  platform.Rect
	state platform.WindowState
	err   error
}

func (f *fakeReader) Title(platform.WindowHandle) string { return f.title }

func (f *fakeReader) Geometry(platform.WindowHandle) (platform.Rect, platform.WindowState, error) {
	return f.rect, f.state, f.err
}

func TestTitleIsReadLive(t *testing.T) {
	r := &fakeReader{title: "before"}
	w := New(1, "Notepad", platform.ProcessInfo{PID: 42, Name: "notepad.exe", Attributed: true}, r)

	if w.Title() != "before" {
		t.Fatalf("expected live title read")
	}
	r.title = "after"
	if w.Title() != "after" {
		t.Fatalf("title must not be cached")
	}
}

func TestGroupKeyIsProcessIDText(t *testing.T) {
	w := New(1, "c", platform.ProcessInfo{PID: 4711, Attributed: true}, &fakeReader{})
	if w.GroupKey() != "4711" {
		t.Fatalf("expected group key 4711, got %q", w.GroupKey())
	}
}

func TestMinimized_ReadFailureCountsAsMinimized(t *testing.T) {
	r := &fakeReader{err: errors.New("gone")}
	w := New(1, "c", platform.ProcessInfo{}, r)
	if !w.Minimized() {
		t.Fatalf("a window whose state cannot be read must be treated as minimized")
	}
}

func TestStoredLocationConsumedAtMostOnce(t *testing.T) {
	w := New(1, "c", platform.ProcessInfo{}, &fakeReader{})

	if _, ok := w.TakeStoredLocation(); ok {
		t.Fatalf("no location stored yet")
	}

	w.StoreLocation(platform.Point{X: 10, Y: 20})
	p, ok := w.TakeStoredLocation()
	if !ok || p.X != 10 || p.Y != 20 {
		t.Fatalf("expected stored location back, got %+v ok=%v", p, ok)
	}
	if _, ok := w.TakeStoredLocation(); ok {
		t.Fatalf("stored location must be consumed exactly once")
	}
}

func TestFlags(t *testing.T) {
	w := New(1, "c", platform.ProcessInfo{}, &fakeReader{})
	if w.ManualHidden() || w.MouseMoving() {
		t.Fatalf("flags must start clear")
	}
	w.SetManualHidden(true)
	w.SetMouseMoving(true)
	if !w.ManualHidden() || !w.MouseMoving() {
		t.Fatalf("flags not set")
	}
}
