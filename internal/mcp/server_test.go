package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/sceneshift/sceneshift/internal/ipc"
	"github.com/sceneshift/sceneshift/internal/scene"
)

type fakeDaemon struct {
	status   ipc.StatusData
	scenes   ipc.ScenesData
	windows  ipc.WindowsData
	switched []string
	desktop  int
	moves    []MoveWindowInput
	toggles  int
	icons    []bool
	err      error
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.status, nil
}

func (f *fakeDaemon) ListScenes() (*ipc.ScenesData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.scenes, nil
}

func (f *fakeDaemon) ListWindows() (*ipc.WindowsData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.windows, nil
}

func (f *fakeDaemon) SwitchScene(id string) error {
	if f.err != nil {
		return f.err
	}
	f.switched = append(f.switched, id)
	return nil
}

func (f *fakeDaemon) Desktop() error {
	f.desktop++
	return f.err
}

func (f *fakeDaemon) MoveWindow(handle uint64, source, target string) error {
	if f.err != nil {
		return f.err
	}
	f.moves = append(f.moves, MoveWindowInput{Handle: handle, SourceScene: source, TargetScene: target})
	return nil
}

func (f *fakeDaemon) ToggleFloat() error {
	f.toggles++
	return f.err
}

func (f *fakeDaemon) SetIcons(visible bool) error {
	if f.err != nil {
		return f.err
	}
	f.icons = append(f.icons, visible)
	return nil
}

func TestHandleListScenes(t *testing.T) {
	daemon := &fakeDaemon{
		scenes: ipc.ScenesData{
			Scenes: []scene.Info{
				{ID: "s1", Title: "alpha.exe", GroupKey: "100", Selected: true,
					Windows: []scene.WindowInfo{{Handle: 1}, {Handle: 2}}},
				{ID: "s2", Title: "beta.exe", GroupKey: "200"},
			},
			Current: "s1",
		},
	}
	s := NewServer(daemon)

	_, out, err := s.handleListScenes(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("handleListScenes() error: %v", err)
	}
	if len(out.Scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(out.Scenes))
	}
	if out.Scenes[0].WindowCount != 2 || !out.Scenes[0].Selected {
		t.Errorf("scene 0 = %+v, want 2 windows and selected", out.Scenes[0])
	}
	if out.Current != "s1" {
		t.Errorf("Current = %q, want s1", out.Current)
	}
}

func TestHandleSwitchScene(t *testing.T) {
	daemon := &fakeDaemon{}
	s := NewServer(daemon)

	_, out, err := s.handleSwitchScene(context.Background(), nil, SwitchSceneInput{SceneID: "s2"})
	if err != nil {
		t.Fatalf("handleSwitchScene() error: %v", err)
	}
	if out.SceneID != "s2" {
		t.Errorf("SceneID = %q, want s2", out.SceneID)
	}
	if len(daemon.switched) != 1 || daemon.switched[0] != "s2" {
		t.Errorf("switched = %v, want [s2]", daemon.switched)
	}
}

func TestHandleSwitchSceneError(t *testing.T) {
	daemon := &fakeDaemon{err: errors.New("no such scene")}
	s := NewServer(daemon)

	_, _, err := s.handleSwitchScene(context.Background(), nil, SwitchSceneInput{SceneID: "nope"})
	if err == nil {
		t.Fatal("expected error from daemon")
	}
}

func TestHandleMoveWindow(t *testing.T) {
	daemon := &fakeDaemon{}
	s := NewServer(daemon)

	_, _, err := s.handleMoveWindow(context.Background(), nil, MoveWindowInput{Handle: 7, TargetScene: "s2"})
	if err != nil {
		t.Fatalf("handleMoveWindow() error: %v", err)
	}
	if len(daemon.moves) != 1 || daemon.moves[0].Handle != 7 || daemon.moves[0].TargetScene != "s2" {
		t.Errorf("moves = %+v", daemon.moves)
	}
}

func TestHandleDesktopAndIcons(t *testing.T) {
	daemon := &fakeDaemon{}
	s := NewServer(daemon)

	if _, _, err := s.handleDesktop(context.Background(), nil, struct{}{}); err != nil {
		t.Fatalf("handleDesktop() error: %v", err)
	}
	if daemon.desktop != 1 {
		t.Errorf("desktop = %d, want 1", daemon.desktop)
	}

	if _, _, err := s.handleSetIcons(context.Background(), nil, SetIconsInput{Visible: true}); err != nil {
		t.Fatalf("handleSetIcons() error: %v", err)
	}
	if len(daemon.icons) != 1 || !daemon.icons[0] {
		t.Errorf("icons = %v, want [true]", daemon.icons)
	}
}

func TestHandleGetStatus(t *testing.T) {
	daemon := &fakeDaemon{status: ipc.StatusData{
		CurrentScene: "alpha.exe", SceneCount: 3, WindowCount: 5, UptimeSeconds: 42,
	}}
	s := NewServer(daemon)

	_, out, err := s.handleGetStatus(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("handleGetStatus() error: %v", err)
	}
	if out.CurrentScene != "alpha.exe" || out.SceneCount != 3 || out.WindowCount != 5 {
		t.Errorf("status = %+v", out)
	}
}
