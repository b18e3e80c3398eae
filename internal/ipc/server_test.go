package ipc

import (
	"fmt"
	"testing"

	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/scene"
)

type fakeCoord struct {
	scenes   []scene.Info
	current  string
	switched []string
	desktop  int
	moves    []string
	icons    []bool
}

func (f *fakeCoord) Scenes() []scene.Info { return f.scenes }

func (f *fakeCoord) Current() (scene.Info, bool) {
	for _, s := range f.scenes {
		if s.ID == f.current {
			return s, true
		}
	}
	return scene.Info{}, false
}

func (f *fakeCoord) CurrentWindows() []scene.WindowInfo {
	var out []scene.WindowInfo
	for _, s := range f.scenes {
		out = append(out, s.Windows...)
	}
	return out
}

func (f *fakeCoord) SwitchTo(id string) error {
	for _, s := range f.scenes {
		if s.ID == id {
			f.switched = append(f.switched, id)
			f.current = id
			return nil
		}
	}
	return fmt.Errorf("no scene with id %s", id)
}

func (f *fakeCoord) SwitchToDesktop() { f.desktop++; f.current = "" }

func (f *fakeCoord) MoveWindow(sourceID string, h platform.WindowHandle, targetID string) error {
	f.moves = append(f.moves, fmt.Sprintf("%s:%d:%s", sourceID, h, targetID))
	return nil
}

func (f *fakeCoord) MoveWindowTo(h platform.WindowHandle, targetID string) error {
	f.moves = append(f.moves, fmt.Sprintf("auto:%d:%s", h, targetID))
	return nil
}

func (f *fakeCoord) SetDesktopIcons(visible bool) error {
	f.icons = append(f.icons, visible)
	return nil
}

type fakeFloater struct{ toggles int }

func (f *fakeFloater) ToggleFocusedFloat() error { f.toggles++; return nil }

func startTestServer(t *testing.T) (*fakeCoord, *fakeFloater, *Client) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	coord := &fakeCoord{
		scenes: []scene.Info{
			{ID: "s1", Title: "alpha.exe", GroupKey: "100", Windows: []scene.WindowInfo{{Handle: 1, Title: "A"}}},
			{ID: "s2", Title: "beta.exe", GroupKey: "200", Windows: []scene.WindowInfo{{Handle: 2, Title: "B"}}},
		},
		current: "s2",
	}
	floater := &fakeFloater{}

	srv, err := NewServer(coord, floater, make(chan struct{}, 1))
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(srv.Stop)

	return coord, floater, NewClient()
}

func TestStatusRoundTrip(t *testing.T) {
	_, _, client := startTestServer(t)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if !status.DaemonRunning {
		t.Error("expected daemon_running true")
	}
	if status.SceneCount != 2 || status.WindowCount != 2 {
		t.Errorf("status = %+v, want 2 scenes and 2 windows", status)
	}
	if status.CurrentScene != "beta.exe" {
		t.Errorf("CurrentScene = %q, want beta.exe", status.CurrentScene)
	}
}

func TestListScenesRoundTrip(t *testing.T) {
	_, _, client := startTestServer(t)

	data, err := client.ListScenes()
	if err != nil {
		t.Fatalf("ListScenes() error: %v", err)
	}
	if len(data.Scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(data.Scenes))
	}
	if data.Current != "s2" {
		t.Errorf("Current = %q, want s2", data.Current)
	}
}

func TestSwitchSceneRoundTrip(t *testing.T) {
	coord, _, client := startTestServer(t)

	if err := client.SwitchScene("s1"); err != nil {
		t.Fatalf("SwitchScene() error: %v", err)
	}
	if len(coord.switched) != 1 || coord.switched[0] != "s1" {
		t.Errorf("switched = %v, want [s1]", coord.switched)
	}

	if err := client.SwitchScene("nope"); err == nil {
		t.Error("expected error for unknown scene")
	}
}

func TestDesktopAndIcons(t *testing.T) {
	coord, _, client := startTestServer(t)

	if err := client.Desktop(); err != nil {
		t.Fatalf("Desktop() error: %v", err)
	}
	if coord.desktop != 1 {
		t.Errorf("desktop count = %d, want 1", coord.desktop)
	}

	if err := client.SetIcons(true); err != nil {
		t.Fatalf("SetIcons() error: %v", err)
	}
	if len(coord.icons) != 1 || !coord.icons[0] {
		t.Errorf("icons = %v, want [true]", coord.icons)
	}
}

func TestMoveWindowRoundTrip(t *testing.T) {
	coord, _, client := startTestServer(t)

	if err := client.MoveWindow(7, "s1", "s2"); err != nil {
		t.Fatalf("MoveWindow() error: %v", err)
	}
	if err := client.MoveWindow(8, "", "s2"); err != nil {
		t.Fatalf("MoveWindow() error: %v", err)
	}
	want := []string{"s1:7:s2", "auto:8:s2"}
	if len(coord.moves) != 2 || coord.moves[0] != want[0] || coord.moves[1] != want[1] {
		t.Errorf("moves = %v, want %v", coord.moves, want)
	}

	if err := client.MoveWindow(0, "", "s2"); err == nil {
		t.Error("expected error for zero handle")
	}
}

func TestToggleFloatRoundTrip(t *testing.T) {
	_, floater, client := startTestServer(t)

	if err := client.ToggleFloat(); err != nil {
		t.Fatalf("ToggleFloat() error: %v", err)
	}
	if floater.toggles != 1 {
		t.Errorf("toggles = %d, want 1", floater.toggles)
	}
}
