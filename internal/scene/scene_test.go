package scene

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/policy"
	"github.com/sceneshift/sceneshift/internal/window"
)

type fakeReader struct {
	mu     sync.Mutex
	titles map[platform.WindowHandle]string
	states map[platform.WindowHandle]platform.WindowState
}

func (r *fakeReader) Title(h platform.WindowHandle) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.titles[h]
}

func (r *fakeReader) Geometry(h platform.WindowHandle) (platform.Rect, platform.WindowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return platform.Rect{X: 10, Y: 20, Width: 640, Height: 480}, r.states[h], nil
}

func (r *fakeReader) setState(h platform.WindowHandle, s platform.WindowState) {
	r.mu.Lock()
	r.states[h] = s
	r.mu.Unlock()
}

type fakeVis struct {
	mu     sync.Mutex
	hidden map[platform.WindowHandle]bool
	refuse map[platform.WindowHandle]bool
	shows  []platform.WindowHandle
	hides  []platform.WindowHandle
}

func (v *fakeVis) Show(h platform.WindowHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.hidden, h)
	v.shows = append(v.shows, h)
}

func (v *fakeVis) Hide(h platform.WindowHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hides = append(v.hides, h)
	if v.refuse[h] {
		return
	}
	v.hidden[h] = true
}

func (v *fakeVis) Hidden(h platform.WindowHandle) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hidden[h]
}

func (v *fakeVis) refuseHide(h platform.WindowHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.refuse == nil {
		v.refuse = make(map[platform.WindowHandle]bool)
	}
	v.refuse[h] = true
}

func (v *fakeVis) Forget(h platform.WindowHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.hidden, h)
}

func (v *fakeVis) shown(h platform.WindowHandle) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.shows {
		if s == h {
			return true
		}
	}
	return false
}

type fakeOps struct {
	mu        sync.Mutex
	fg        platform.WindowHandle
	focused   []platform.WindowHandle
	icons     []bool
	selection bool
	moved     map[platform.WindowHandle]platform.Point
}

func (o *fakeOps) Foreground() platform.WindowHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fg
}

func (o *fakeOps) Focus(h platform.WindowHandle) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.focused = append(o.focused, h)
	return nil
}

func (o *fakeOps) MoveTo(h platform.WindowHandle, p platform.Point) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moved[h] = p
	return nil
}

func (o *fakeOps) SetDesktopIconsVisible(visible bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.icons = append(o.icons, visible)
	return nil
}

func (o *fakeOps) DesktopSelectionActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selection
}

func (o *fakeOps) lastFocus() platform.WindowHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.focused) == 0 {
		return 0
	}
	return o.focused[len(o.focused)-1]
}

func (o *fakeOps) lastIcons() (bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.icons) == 0 {
		return false, false
	}
	return o.icons[len(o.icons)-1], true
}

type fakeTrk struct {
	mu       sync.Mutex
	windows  map[platform.WindowHandle]*window.TrackedWindow
	floating map[platform.WindowHandle]bool
}

func (tk *fakeTrk) Lookup(h platform.WindowHandle) (*window.TrackedWindow, bool) {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	w, ok := tk.windows[h]
	return w, ok
}

func (tk *fakeTrk) IsFloating(h platform.WindowHandle) bool {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.floating[h]
}

type eventRec struct {
	mu         sync.Mutex
	changes    []string
	selections []string
}

func (r *eventRec) record(s Info, _ WindowInfo, kind ChangeKind) {
	r.mu.Lock()
	r.changes = append(r.changes, fmt.Sprintf("%s:%s", kind, s.GroupKey))
	r.mu.Unlock()
}

func (r *eventRec) selection(prev, next *Info) {
	label := func(i *Info) string {
		if i == nil {
			return "desktop"
		}
		return i.GroupKey
	}
	r.mu.Lock()
	r.selections = append(r.selections, label(prev)+"->"+label(next))
	r.mu.Unlock()
}

func (r *eventRec) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changes...)
}

type fixture struct {
	rd  *fakeReader
	vis *fakeVis
	ops *fakeOps
	trk *fakeTrk
	rec *eventRec
	co  *Coordinator
}

func newFixture(t *testing.T, rules *policy.Ruleset) *fixture {
	t.Helper()
	if rules == nil {
		rules = &policy.Ruleset{}
	}
	f := &fixture{
		rd:  &fakeReader{titles: map[platform.WindowHandle]string{}, states: map[platform.WindowHandle]platform.WindowState{}},
		vis: &fakeVis{hidden: map[platform.WindowHandle]bool{}},
		ops: &fakeOps{moved: map[platform.WindowHandle]platform.Point{}},
		trk: &fakeTrk{windows: map[platform.WindowHandle]*window.TrackedWindow{}, floating: map[platform.WindowHandle]bool{}},
		rec: &eventRec{},
	}
	f.co = New(f.vis, f.ops, f.trk, rules, Options{
		HideDesktopIcons: true,
		ReentrancyWindow: time.Second,
		DestroyGrace:     20 * time.Millisecond,
		ToggleDebounce:   100 * time.Millisecond,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.co.SetEvents(Events{SceneChanged: f.rec.record, SelectionChanged: f.rec.selection})
	return f
}

func (f *fixture) newWindow(h platform.WindowHandle, pid uint32, proc, title string) *window.TrackedWindow {
	f.rd.mu.Lock()
	f.rd.titles[h] = title
	f.rd.mu.Unlock()
	tw := window.New(h, "TestClass", platform.ProcessInfo{PID: pid, Name: proc, Attributed: true}, f.rd)
	f.trk.mu.Lock()
	f.trk.windows[h] = tw
	f.trk.mu.Unlock()
	return tw
}

// ageSwitch moves the last switch outside the reentrancy grace window.
func (f *fixture) ageSwitch() {
	f.co.mu.Lock()
	f.co.prevSwitchAt = f.co.prevSwitchAt.Add(-2 * time.Second)
	f.co.mu.Unlock()
}

func (f *fixture) ageToggle() {
	f.co.mu.Lock()
	f.co.lastToggleAt = f.co.lastToggleAt.Add(-time.Second)
	f.co.mu.Unlock()
}

func sceneIDByGroup(t *testing.T, co *Coordinator, group string) string {
	t.Helper()
	for _, s := range co.Scenes() {
		if s.GroupKey == group {
			return s.ID
		}
	}
	t.Fatalf("no scene with group key %s", group)
	return ""
}

func TestTwoProcessesCreateAndAutoSwitch(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "Alpha")
	w2 := f.newWindow(2, 200, "beta.exe", "Beta")

	f.co.handleCreated(w1, true)
	cur, ok := f.co.Current()
	require.True(t, ok)
	assert.Equal(t, "100", cur.GroupKey)

	f.co.handleCreated(w2, true)
	cur, ok = f.co.Current()
	require.True(t, ok)
	assert.Equal(t, "200", cur.GroupKey)

	scenes := f.co.Scenes()
	require.Len(t, scenes, 2)
	assert.False(t, scenes[0].Selected)
	assert.True(t, scenes[1].Selected)
	assert.True(t, f.vis.Hidden(1), "first scene's window should be hidden")
	assert.False(t, f.vis.Hidden(2))
	assert.Equal(t, platform.WindowHandle(2), f.ops.lastFocus())
	assert.True(t, w1.ManualHidden())
}

func TestSecondWindowAppendsWithoutSwitch(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A1")
	w2 := f.newWindow(2, 100, "alpha.exe", "A2")

	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	scenes := f.co.Scenes()
	require.Len(t, scenes, 1)
	require.Len(t, scenes[0].Windows, 2)
	assert.Contains(t, f.rec.all(), "updated:100")
	assert.False(t, f.vis.Hidden(2))
}

func TestDestroyFocusedRevealsSurvivor(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A1")
	w2 := f.newWindow(2, 100, "alpha.exe", "A2")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)
	f.co.handleFocused(w2)

	f.trk.mu.Lock()
	delete(f.trk.windows, 2)
	f.trk.mu.Unlock()
	f.co.handleDestroyed(w2)

	scenes := f.co.Scenes()
	require.Len(t, scenes, 1)
	require.Len(t, scenes[0].Windows, 1)
	assert.Contains(t, f.rec.all(), "updated:100")

	require.Eventually(t, func() bool {
		return f.ops.lastFocus() == 1 && f.vis.shown(1)
	}, time.Second, 5*time.Millisecond, "survivor should be shown and focused after the grace delay")
}

func TestDestroyLastWindowRemovesSceneAndFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)
	f.ageSwitch()

	f.trk.mu.Lock()
	delete(f.trk.windows, 2)
	f.trk.mu.Unlock()
	f.co.handleDestroyed(w2)

	assert.Contains(t, f.rec.all(), "removed:200")
	require.Eventually(t, func() bool {
		cur, ok := f.co.Current()
		return ok && cur.GroupKey == "100"
	}, time.Second, 5*time.Millisecond, "should fall back to the remaining scene")
	assert.False(t, f.vis.Hidden(1))
}

func TestDestroyWithinGraceStillFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	// The second scene's only window dies right after the switch to it,
	// well inside the reentrancy grace. The fallback switch back to the
	// first scene must land anyway.
	f.trk.mu.Lock()
	delete(f.trk.windows, 2)
	f.trk.mu.Unlock()
	f.co.handleDestroyed(w2)

	require.Eventually(t, func() bool {
		cur, ok := f.co.Current()
		return ok && cur.GroupKey == "100"
	}, time.Second, 5*time.Millisecond, "fallback switch must not be blocked by the reentrancy grace")
	assert.False(t, f.vis.Hidden(1))
	scenes := f.co.Scenes()
	require.Len(t, scenes, 1)
	assert.True(t, scenes[0].Selected)
}

func TestMoveOnlyWindowOfCurrentSceneWithinGrace(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	// Moving the current scene's last window empties it; the switch to the
	// target happens immediately even though the target was the previous
	// selection moments ago.
	source := sceneIDByGroup(t, f.co, "200")
	target := sceneIDByGroup(t, f.co, "100")
	require.NoError(t, f.co.MoveWindow(source, 2, target))

	cur, ok := f.co.Current()
	require.True(t, ok)
	assert.Equal(t, "100", cur.GroupKey)
	scenes := f.co.Scenes()
	require.Len(t, scenes, 1)
	assert.Len(t, scenes[0].Windows, 2)
}

func TestRefusedHideLeavesWindowUnflagged(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.vis.refuseHide(1)

	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	assert.False(t, f.vis.Hidden(1))
	assert.False(t, w1.ManualHidden(), "a window the engine never hid must not carry the manual-hide flag")
	assert.False(t, w2.ManualHidden())
}

func TestMoveOnlyWindowRemovesSource(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	source := sceneIDByGroup(t, f.co, "100")
	target := sceneIDByGroup(t, f.co, "200")
	require.NoError(t, f.co.MoveWindow(source, 1, target))

	scenes := f.co.Scenes()
	require.Len(t, scenes, 1)
	assert.Equal(t, "200", scenes[0].GroupKey)
	assert.Len(t, scenes[0].Windows, 2)
	assert.Contains(t, f.rec.all(), "removed:100")
	assert.Contains(t, f.rec.all(), "updated:200")
	assert.True(t, f.vis.shown(1), "window moved into the current scene is shown")
	assert.Equal(t, platform.WindowHandle(1), f.ops.lastFocus())
	assert.False(t, w1.ManualHidden())
}

func TestMoveToHiddenSceneRestoresPosition(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B1")
	w3 := f.newWindow(3, 200, "beta.exe", "B2")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)
	f.co.handleCreated(w3, true)

	w2.StoreLocation(platform.Point{X: 5, Y: 6})
	target := sceneIDByGroup(t, f.co, "100")
	require.NoError(t, f.co.MoveWindowTo(2, target))

	assert.True(t, f.vis.Hidden(2))
	assert.True(t, w2.ManualHidden())
	f.ops.mu.Lock()
	p, ok := f.ops.moved[2]
	f.ops.mu.Unlock()
	require.True(t, ok, "stored location should be restored")
	assert.Equal(t, platform.Point{X: 5, Y: 6}, p)
}

func TestMoveLastToCurrent(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A1")
	w2 := f.newWindow(2, 100, "alpha.exe", "A2")
	w3 := f.newWindow(3, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)
	f.co.handleCreated(w3, true)

	require.NoError(t, f.co.MoveLastToCurrent(sceneIDByGroup(t, f.co, "100")))

	cur, ok := f.co.Current()
	require.True(t, ok)
	require.Len(t, cur.Windows, 2)
	assert.Equal(t, uintptr(2), cur.Windows[1].Handle)
}

func TestReentrancySuppression(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	// Scene 100 was current immediately before the switch to 200, which
	// just happened; switching back must be suppressed.
	require.NoError(t, f.co.SwitchTo(sceneIDByGroup(t, f.co, "100")))
	cur, ok := f.co.Current()
	require.True(t, ok)
	assert.Equal(t, "200", cur.GroupKey)

	f.ageSwitch()
	require.NoError(t, f.co.SwitchTo(sceneIDByGroup(t, f.co, "100")))
	cur, ok = f.co.Current()
	require.True(t, ok)
	assert.Equal(t, "100", cur.GroupKey)
}

func TestSwitchNeverHidesForeground(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)
	f.ageSwitch()

	f.ops.mu.Lock()
	f.ops.fg = 2
	f.ops.mu.Unlock()
	require.NoError(t, f.co.SwitchTo(sceneIDByGroup(t, f.co, "100")))

	assert.False(t, f.vis.Hidden(2), "the foreground window is never hidden")
	assert.False(t, w2.ManualHidden())
	assert.False(t, f.vis.Hidden(1))
}

func TestMinimizedWindowNotShownOnSwitch(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A1")
	w2 := f.newWindow(2, 100, "alpha.exe", "A2")
	w3 := f.newWindow(3, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)
	f.co.handleCreated(w3, true)
	f.ageSwitch()

	f.rd.setState(2, platform.StateMinimized)
	f.vis.mu.Lock()
	f.vis.shows = nil
	f.vis.mu.Unlock()
	require.NoError(t, f.co.SwitchTo(sceneIDByGroup(t, f.co, "100")))

	assert.True(t, f.vis.shown(1))
	assert.False(t, f.vis.shown(2), "minimized window stays hidden")
	assert.Equal(t, platform.WindowHandle(1), f.ops.lastFocus())
}

func TestFocusRestoredToLastFocusedMember(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A1")
	w2 := f.newWindow(2, 100, "alpha.exe", "A2")
	w3 := f.newWindow(3, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)
	f.co.handleFocused(w2)
	f.co.handleCreated(w3, true)
	f.ageSwitch()

	require.NoError(t, f.co.SwitchTo(sceneIDByGroup(t, f.co, "100")))
	assert.Equal(t, platform.WindowHandle(2), f.ops.lastFocus())
}

func TestDesktopClickToggles(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	f.co.handleCreated(w1, true)
	f.ageSwitch()

	f.co.handleDesktopClick(99)
	_, ok := f.co.Current()
	assert.False(t, ok, "click in a scene drops to desktop view")
	icons, set := f.ops.lastIcons()
	require.True(t, set)
	assert.True(t, icons, "icons revealed in desktop view")
	assert.True(t, f.vis.Hidden(1))

	// Within the debounce window the second click is dropped.
	f.co.handleDesktopClick(99)
	_, ok = f.co.Current()
	assert.False(t, ok)

	f.ageToggle()
	f.ageSwitch()
	f.co.handleDesktopClick(99)
	cur, ok := f.co.Current()
	require.True(t, ok, "click in desktop view toggles back to the last scene")
	assert.Equal(t, "100", cur.GroupKey)
	icons, _ = f.ops.lastIcons()
	assert.False(t, icons)
}

func TestDesktopClickIgnoredDuringIconSelection(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	f.co.handleCreated(w1, true)

	f.ops.mu.Lock()
	f.ops.selection = true
	f.ops.mu.Unlock()
	f.co.handleDesktopClick(99)

	_, ok := f.co.Current()
	assert.True(t, ok, "clicks on icon selections never toggle")
}

func TestDesktopClickWithoutLastSceneDoesNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.co.handleDesktopClick(99)
	_, ok := f.co.Current()
	assert.False(t, ok)
	assert.Empty(t, f.rec.all())
}

func TestPersistentWindowNeverJoinsScene(t *testing.T) {
	rules := &policy.Ruleset{Persistent: []policy.PersistentRule{
		{Executable: "zoom.exe", TitleContains: "meeting"},
	}}
	f := newFixture(t, rules)
	pw := f.newWindow(1, 100, "Zoom.exe", "Zoom Meeting Controls")
	f.co.handleCreated(pw, true)

	assert.Empty(t, f.co.Scenes())
	_, ok := f.co.Current()
	assert.False(t, ok)

	f.co.handleFocused(pw)
	assert.Empty(t, f.co.Scenes(), "focusing a persistent window must not create a scene")
}

func TestFloatDetachesAndReinstates(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A1")
	w2 := f.newWindow(2, 100, "alpha.exe", "A2")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	f.trk.mu.Lock()
	f.trk.floating[2] = true
	f.trk.mu.Unlock()
	f.co.handleFloated(w2, true)

	scenes := f.co.Scenes()
	require.Len(t, scenes, 1)
	require.Len(t, scenes[0].Windows, 1)

	// Focus events for a floating window never switch scenes.
	f.ageSwitch()
	f.co.SwitchToDesktop()
	f.co.handleFocused(w2)
	_, ok := f.co.Current()
	assert.False(t, ok)

	f.trk.mu.Lock()
	delete(f.trk.floating, 2)
	f.trk.mu.Unlock()
	f.ageSwitch()
	f.co.handleFloated(w2, false)

	scenes = f.co.Scenes()
	require.Len(t, scenes, 1)
	assert.Len(t, scenes[0].Windows, 2)
	cur, ok := f.co.Current()
	require.True(t, ok)
	assert.Equal(t, "100", cur.GroupKey)
}

func TestBootstrapAdoptsWithoutSwitching(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")

	f.co.Bootstrap([]*window.TrackedWindow{w1, w2})

	assert.Len(t, f.co.Scenes(), 2)
	_, ok := f.co.Current()
	assert.False(t, ok, "bootstrap must not activate a scene")
	assert.False(t, f.vis.Hidden(1))
	assert.False(t, f.vis.Hidden(2))
	assert.Contains(t, f.rec.all(), "created:100")
	assert.Contains(t, f.rec.all(), "created:200")
}

func TestSelectionChangedEvents(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	f.co.handleCreated(w1, true)
	f.ageSwitch()
	f.co.SwitchToDesktop()

	f.rec.mu.Lock()
	sel := append([]string(nil), f.rec.selections...)
	f.rec.mu.Unlock()
	require.Len(t, sel, 2)
	assert.Equal(t, "desktop->100", sel[0])
	assert.Equal(t, "100->desktop", sel[1])
}

func TestSwitchToUnknownScene(t *testing.T) {
	f := newFixture(t, nil)
	err := f.co.SwitchTo("nope")
	require.Error(t, err)
}

func TestCurrentWindowsFallsBackToAll(t *testing.T) {
	f := newFixture(t, nil)
	w1 := f.newWindow(1, 100, "alpha.exe", "A")
	w2 := f.newWindow(2, 200, "beta.exe", "B")
	f.co.handleCreated(w1, true)
	f.co.handleCreated(w2, true)

	wins := f.co.CurrentWindows()
	require.Len(t, wins, 1)
	assert.Equal(t, uintptr(2), wins[0].Handle)

	f.co.SwitchToDesktop()
	wins = f.co.CurrentWindows()
	assert.Len(t, wins, 2)
}
