package scene

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/policy"
	"github.com/sceneshift/sceneshift/internal/tracker"
	"github.com/sceneshift/sceneshift/internal/window"
)

// Visibility is the subset of the visibility engine the coordinator drives.
// Hidden reports whether the engine holds restoration state for the handle,
// i.e. the hide actually took effect.
type Visibility interface {
	Show(platform.WindowHandle)
	Hide(platform.WindowHandle)
	Hidden(platform.WindowHandle) bool
	Forget(platform.WindowHandle)
}

// Ops is the platform surface the coordinator needs beyond visibility.
type Ops interface {
	Foreground() platform.WindowHandle
	Focus(platform.WindowHandle) error
	MoveTo(platform.WindowHandle, platform.Point) error
	SetDesktopIconsVisible(bool) error
	DesktopSelectionActive() bool
}

// Tracker is the subset of the tracking hub the coordinator reads.
type Tracker interface {
	Lookup(platform.WindowHandle) (*window.TrackedWindow, bool)
	IsFloating(platform.WindowHandle) bool
}

// Events carries the coordinator's outbound notifications. Nil fields are
// skipped. Callbacks run outside the coordinator lock and may call back in.
type Events struct {
	SceneChanged     func(s Info, w WindowInfo, kind ChangeKind)
	SelectionChanged func(previous, next *Info)
}

// Options tunes coordinator behavior. Zero durations take the defaults.
type Options struct {
	// HideDesktopIcons gates whether scene switches touch the desktop icon
	// layer at all.
	HideDesktopIcons bool
	// ReentrancyWindow suppresses a switch back to the immediately-prior
	// scene for this long after a switch.
	ReentrancyWindow time.Duration
	// DestroyGrace delays destroy-triggered fallback actions so the OS can
	// settle; the action re-validates state when it wakes.
	DestroyGrace time.Duration
	// ToggleDebounce drops repeated desktop-click toggles closer together
	// than this.
	ToggleDebounce time.Duration
	Logger         *slog.Logger
}

// Coordinator owns the scene set, the active scene and the switching
// protocol. All state is guarded by a single lock; outbound events are
// queued under the lock and delivered after it is released.
type Coordinator struct {
	vis   Visibility
	ops   Ops
	trk   Tracker
	rules *policy.Ruleset
	log   *slog.Logger

	hideIcons      bool
	reentrancy     time.Duration
	destroyGrace   time.Duration
	toggleDebounce time.Duration

	mu           sync.Mutex
	scenes       []*Scene
	current      *Scene
	lastScene    *Scene
	prevSceneID  string
	prevSwitchAt time.Time
	lastFocused  platform.WindowHandle
	suspended    bool
	lastToggleAt time.Time
	events       Events
	queue        []func()
	newID        func() string
}

// New creates a coordinator over the given visibility engine, platform
// surface, tracking hub and classification policy.
func New(vis Visibility, ops Ops, trk Tracker, rules *policy.Ruleset, opts Options) *Coordinator {
	if opts.ReentrancyWindow <= 0 {
		opts.ReentrancyWindow = time.Second
	}
	if opts.DestroyGrace <= 0 {
		opts.DestroyGrace = 300 * time.Millisecond
	}
	if opts.ToggleDebounce <= 0 {
		opts.ToggleDebounce = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		vis:            vis,
		ops:            ops,
		trk:            trk,
		rules:          rules,
		log:            opts.Logger,
		hideIcons:      opts.HideDesktopIcons,
		reentrancy:     opts.ReentrancyWindow,
		destroyGrace:   opts.DestroyGrace,
		toggleDebounce: opts.ToggleDebounce,
		newID:          uuid.NewString,
	}
}

// UpdateConfig swaps the classification rules and tuning values, applied to
// subsequent operations. Existing scene membership is untouched.
func (c *Coordinator) UpdateConfig(rules *policy.Ruleset, opts Options) {
	if opts.ReentrancyWindow <= 0 {
		opts.ReentrancyWindow = time.Second
	}
	if opts.DestroyGrace <= 0 {
		opts.DestroyGrace = 300 * time.Millisecond
	}
	if opts.ToggleDebounce <= 0 {
		opts.ToggleDebounce = 100 * time.Millisecond
	}
	c.mu.Lock()
	c.rules = rules
	c.hideIcons = opts.HideDesktopIcons
	c.reentrancy = opts.ReentrancyWindow
	c.destroyGrace = opts.DestroyGrace
	c.toggleDebounce = opts.ToggleDebounce
	c.mu.Unlock()
}

// SetEvents registers the outbound event callbacks.
func (c *Coordinator) SetEvents(ev Events) {
	c.mu.Lock()
	c.events = ev
	c.mu.Unlock()
}

// Listener returns the tracker listener that feeds this coordinator.
func (c *Coordinator) Listener() tracker.Listener {
	return tracker.Listener{
		Created:        c.handleCreated,
		Destroyed:      c.handleDestroyed,
		Updated:        c.handleUpdated,
		Focused:        c.handleFocused,
		DesktopClick:   c.handleDesktopClick,
		UntrackedFocus: c.handleUntrackedFocus,
		Floated:        c.handleFloated,
	}
}

// run executes fn under the coordinator lock and then delivers any events fn
// queued. Every entry point, including delayed timer callbacks, goes through
// here so outbound callbacks never run while the lock is held.
func (c *Coordinator) run(fn func()) {
	c.mu.Lock()
	fn()
	q := c.queue
	c.queue = nil
	c.mu.Unlock()
	for _, f := range q {
		f()
	}
}

func (c *Coordinator) emitScene(s *Scene, w *window.TrackedWindow, kind ChangeKind) {
	ev := c.events.SceneChanged
	if ev == nil {
		return
	}
	info := infoFor(s)
	var wi WindowInfo
	if w != nil {
		proc := w.Process()
		wi = WindowInfo{
			Handle:  uintptr(w.Handle()),
			Title:   w.Title(),
			Class:   w.Class(),
			PID:     proc.PID,
			Process: proc.Name,
		}
	}
	c.queue = append(c.queue, func() { ev(info, wi, kind) })
}

func (c *Coordinator) emitSelection(prev, next *Scene) {
	ev := c.events.SelectionChanged
	if ev == nil {
		return
	}
	var pi, ni *Info
	if prev != nil {
		v := infoFor(prev)
		pi = &v
	}
	if next != nil {
		v := infoFor(next)
		ni = &v
	}
	c.queue = append(c.queue, func() { ev(pi, ni) })
}

func sameScene(a, b *Scene) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.id == b.id
}

func sceneID(s *Scene) string {
	if s == nil {
		return ""
	}
	return s.id
}

func sceneLabel(s *Scene) string {
	if s == nil {
		return "desktop"
	}
	return s.title
}

func (c *Coordinator) isPersistent(tw *window.TrackedWindow) bool {
	return c.rules.IsPersistent(tw.Process().Name, tw.Title())
}

func (c *Coordinator) sceneOfLocked(h platform.WindowHandle) *Scene {
	for _, s := range c.scenes {
		if s.contains(h) {
			return s
		}
	}
	return nil
}

func (c *Coordinator) sceneByIDLocked(id string) *Scene {
	for _, s := range c.scenes {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (c *Coordinator) removeSceneLocked(target *Scene) {
	for i, s := range c.scenes {
		if s.id == target.id {
			c.scenes = append(c.scenes[:i], c.scenes[i+1:]...)
			return
		}
	}
}

// adoptLocked places a window into the scene for its group key, creating the
// scene if none exists. Reports whether a scene was created.
func (c *Coordinator) adoptLocked(tw *window.TrackedWindow) (*Scene, bool) {
	key := tw.GroupKey()
	for _, s := range c.scenes {
		if s.groupKey != key {
			continue
		}
		if !s.contains(tw.Handle()) {
			s.append(tw)
			c.emitScene(s, tw, ChangeUpdated)
		}
		return s, false
	}
	s := &Scene{id: c.newID(), groupKey: key, title: tw.Process().Name}
	s.append(tw)
	c.scenes = append(c.scenes, s)
	c.emitScene(s, tw, ChangeCreated)
	c.log.Debug("scene created", "scene", s.title, "group", key)
	return s, true
}

// forceSwitchLocked is for system-initiated switches (destroy fallbacks,
// emptied-source moves). The reentrancy grace only applies to user-driven
// flapping; a switch away from a scene that no longer exists must always
// land.
func (c *Coordinator) forceSwitchLocked(target *Scene) {
	c.prevSwitchAt = time.Time{}
	c.switchLocked(target)
}

// switchLocked runs the switch protocol. A nil target is the desktop view.
func (c *Coordinator) switchLocked(target *Scene) {
	if sameScene(c.current, target) {
		return
	}
	if !c.prevSwitchAt.IsZero() && sceneID(target) == c.prevSceneID &&
		time.Since(c.prevSwitchAt) < c.reentrancy {
		c.log.Debug("switch suppressed by reentrancy grace", "to", sceneLabel(target))
		return
	}

	prior := c.current
	c.suspended = true
	var focus platform.WindowHandle
	defer func() {
		c.suspended = false
		if focus != 0 {
			if err := c.ops.Focus(focus); err != nil {
				c.log.Debug("focus after switch failed", "error", err)
			}
		}
	}()

	// Hide-set goes first so at most the fade overlap shows two scenes at
	// once. The foreground window is never hidden even if it still sits in
	// another scene due to an event race.
	fg := c.ops.Foreground()
	for _, s := range c.scenes {
		if target != nil && s.id == target.id {
			continue
		}
		for _, w := range s.windows {
			h := w.Handle()
			if h == fg {
				continue
			}
			c.vis.Hide(h)
			// A refused hide (minimized or ineligible window) must not be
			// flagged, or a later OS cloak of that window would unregister
			// it instead of counting as a plain hide.
			if c.vis.Hidden(h) {
				w.SetManualHidden(true)
			}
		}
	}

	if target != nil {
		for _, w := range target.windows {
			if w.Minimized() {
				continue
			}
			c.vis.Show(w.Handle())
			w.SetManualHidden(false)
		}
		if lw, ok := c.trk.Lookup(c.lastFocused); ok && target.contains(c.lastFocused) && !lw.Minimized() {
			focus = c.lastFocused
		} else {
			for _, w := range target.windows {
				if !w.Minimized() {
					focus = w.Handle()
					break
				}
			}
		}
	}

	for _, s := range c.scenes {
		s.selected = target != nil && s.id == target.id
	}
	if target == nil {
		c.lastScene = prior
		if c.hideIcons {
			if err := c.ops.SetDesktopIconsVisible(true); err != nil {
				c.log.Warn("failed to reveal desktop icons", "error", err)
			}
		}
	} else {
		c.lastScene = nil
		if c.hideIcons {
			if err := c.ops.SetDesktopIconsVisible(false); err != nil {
				c.log.Warn("failed to hide desktop icons", "error", err)
			}
		}
	}
	c.current = target
	c.prevSceneID = sceneID(prior)
	c.prevSwitchAt = time.Now()
	c.emitSelection(prior, target)
	c.log.Info("scene switch", "from", sceneLabel(prior), "to", sceneLabel(target))
}

func (c *Coordinator) handleCreated(tw *window.TrackedWindow, firstCreate bool) {
	c.run(func() {
		if c.suspended {
			return
		}
		if c.isPersistent(tw) {
			return
		}
		s, created := c.adoptLocked(tw)
		if created {
			c.switchLocked(s)
		}
	})
}

func (c *Coordinator) handleUpdated(tw *window.TrackedWindow, kind tracker.UpdateKind) {
	if kind != tracker.UpdateShow {
		return
	}
	c.run(func() {
		if c.suspended {
			return
		}
		c.activateLocked(tw)
	})
}

func (c *Coordinator) handleFocused(tw *window.TrackedWindow) {
	c.run(func() {
		if c.suspended {
			return
		}
		c.lastFocused = tw.Handle()
		c.activateLocked(tw)
	})
}

// activateLocked routes a foreground or re-shown window to its scene,
// creating one if necessary, and switches to it.
func (c *Coordinator) activateLocked(tw *window.TrackedWindow) {
	if c.isPersistent(tw) || c.trk.IsFloating(tw.Handle()) {
		return
	}
	s, _ := c.adoptLocked(tw)
	if sameScene(c.current, s) {
		return
	}
	c.switchLocked(s)
}

func (c *Coordinator) handleUntrackedFocus(h platform.WindowHandle) {
	c.log.Debug("untracked window focused", "handle", uintptr(h))
}

func (c *Coordinator) handleDestroyed(tw *window.TrackedWindow) {
	c.run(func() {
		h := tw.Handle()
		c.vis.Forget(h)
		hadFocus := c.lastFocused == h
		if hadFocus {
			c.lastFocused = 0
		}

		s := c.sceneOfLocked(h)
		if s == nil {
			return
		}
		s.remove(h)
		if len(s.windows) > 0 {
			c.emitScene(s, tw, ChangeUpdated)
			if hadFocus && sameScene(c.current, s) {
				id := s.id
				time.AfterFunc(c.destroyGrace, func() { c.revealSurvivor(id) })
			}
			return
		}

		c.removeSceneLocked(s)
		c.emitScene(s, tw, ChangeRemoved)
		c.log.Debug("scene removed", "scene", s.title)
		if sameScene(c.current, s) {
			id := s.id
			time.AfterFunc(c.destroyGrace, func() { c.fallbackSwitch(id) })
		}
	})
}

// revealSurvivor runs after the destroy grace delay: if the scene still
// exists, is still current and still has windows, its first window is shown
// and focused.
func (c *Coordinator) revealSurvivor(id string) {
	c.run(func() {
		s := c.sceneByIDLocked(id)
		if s == nil || !sameScene(c.current, s) || len(s.windows) == 0 {
			return
		}
		w := s.windows[0]
		c.vis.Show(w.Handle())
		w.SetManualHidden(false)
		if err := c.ops.Focus(w.Handle()); err != nil {
			c.log.Debug("focus after destroy failed", "error", err)
		}
	})
}

// fallbackSwitch runs after the destroy grace delay when the current scene
// was removed: if nothing has replaced it in the meantime, switch to the
// first remaining non-empty scene, or to the desktop view.
func (c *Coordinator) fallbackSwitch(removedID string) {
	c.run(func() {
		if c.current == nil || c.current.id != removedID {
			return
		}
		var next *Scene
		for _, s := range c.scenes {
			if len(s.windows) > 0 {
				next = s
				break
			}
		}
		c.forceSwitchLocked(next)
	})
}

func (c *Coordinator) handleFloated(tw *window.TrackedWindow, floating bool) {
	c.run(func() {
		h := tw.Handle()
		if !floating {
			if c.isPersistent(tw) {
				return
			}
			s, _ := c.adoptLocked(tw)
			if !sameScene(c.current, s) {
				c.switchLocked(s)
			}
			return
		}

		s := c.sceneOfLocked(h)
		if s == nil {
			return
		}
		s.remove(h)
		tw.SetManualHidden(false)
		if len(s.windows) > 0 {
			c.emitScene(s, tw, ChangeUpdated)
			return
		}
		c.removeSceneLocked(s)
		c.emitScene(s, tw, ChangeRemoved)
		if sameScene(c.current, s) {
			id := s.id
			time.AfterFunc(c.destroyGrace, func() { c.fallbackSwitch(id) })
		}
	})
}

func (c *Coordinator) handleDesktopClick(h platform.WindowHandle) {
	c.run(func() {
		if c.suspended || !c.hideIcons {
			return
		}
		if c.ops.DesktopSelectionActive() {
			return
		}
		now := time.Now()
		if !c.lastToggleAt.IsZero() && now.Sub(c.lastToggleAt) < c.toggleDebounce {
			return
		}
		c.lastToggleAt = now

		if c.current != nil {
			c.switchLocked(nil)
			return
		}
		last := c.lastScene
		if last == nil || c.sceneByIDLocked(last.id) == nil {
			return
		}
		c.switchLocked(last)
	})
}

// Bootstrap adopts pre-existing tracked windows into scenes without
// switching to any of them. Everything stays visible until the first
// user-driven switch.
func (c *Coordinator) Bootstrap(windows []*window.TrackedWindow) {
	c.run(func() {
		for _, tw := range windows {
			if c.isPersistent(tw) || c.trk.IsFloating(tw.Handle()) {
				continue
			}
			c.adoptLocked(tw)
		}
	})
}

// SwitchTo activates the scene with the given id.
func (c *Coordinator) SwitchTo(id string) error {
	var err error
	c.run(func() {
		s := c.sceneByIDLocked(id)
		if s == nil {
			err = fmt.Errorf("no scene with id %s", id)
			return
		}
		c.switchLocked(s)
	})
	return err
}

// SwitchToDesktop deactivates the current scene and returns to the desktop
// view.
func (c *Coordinator) SwitchToDesktop() {
	c.run(func() { c.switchLocked(nil) })
}

// MoveWindow detaches a window from the source scene and appends it to the
// target scene.
func (c *Coordinator) MoveWindow(sourceID string, h platform.WindowHandle, targetID string) error {
	var err error
	c.run(func() {
		source := c.sceneByIDLocked(sourceID)
		target := c.sceneByIDLocked(targetID)
		if target == nil {
			err = fmt.Errorf("no scene with id %s", targetID)
			return
		}
		tw, ok := c.trk.Lookup(h)
		if !ok {
			err = fmt.Errorf("window %d is not tracked", uintptr(h))
			return
		}
		c.moveLocked(source, tw, target)
	})
	return err
}

// MoveWindowTo moves a window by handle alone, locating its source scene.
func (c *Coordinator) MoveWindowTo(h platform.WindowHandle, targetID string) error {
	var err error
	c.run(func() {
		target := c.sceneByIDLocked(targetID)
		if target == nil {
			err = fmt.Errorf("no scene with id %s", targetID)
			return
		}
		tw, ok := c.trk.Lookup(h)
		if !ok {
			err = fmt.Errorf("window %d is not tracked", uintptr(h))
			return
		}
		c.moveLocked(c.sceneOfLocked(h), tw, target)
	})
	return err
}

// MoveLastToCurrent moves the most recent window of the given scene into the
// current scene.
func (c *Coordinator) MoveLastToCurrent(sceneID string) error {
	var err error
	c.run(func() {
		if c.current == nil {
			err = fmt.Errorf("no scene is active")
			return
		}
		source := c.sceneByIDLocked(sceneID)
		if source == nil {
			err = fmt.Errorf("no scene with id %s", sceneID)
			return
		}
		tw := source.last()
		if tw == nil {
			return
		}
		c.moveLocked(source, tw, c.current)
	})
	return err
}

func (c *Coordinator) moveLocked(source *Scene, tw *window.TrackedWindow, target *Scene) {
	if source == nil || source.id == target.id {
		return
	}
	h := tw.Handle()
	if !source.remove(h) {
		return
	}
	target.append(tw)

	emptied := len(source.windows) == 0
	if emptied {
		c.removeSceneLocked(source)
		c.emitScene(source, tw, ChangeRemoved)
	} else {
		c.emitScene(source, tw, ChangeUpdated)
	}
	c.emitScene(target, tw, ChangeUpdated)

	if sameScene(c.current, target) {
		c.vis.Show(h)
		tw.SetManualHidden(false)
		if err := c.ops.Focus(h); err != nil {
			c.log.Debug("focus after move failed", "error", err)
		}
	} else {
		c.vis.Hide(h)
		if c.vis.Hidden(h) {
			tw.SetManualHidden(true)
		}
		if p, ok := tw.TakeStoredLocation(); ok {
			if err := c.ops.MoveTo(h, p); err != nil {
				c.log.Debug("position restore after move failed", "error", err)
			}
		}
	}
	if emptied && sameScene(c.current, source) {
		c.forceSwitchLocked(target)
	}
}

// SetDesktopIcons shows or hides the desktop icon layer directly.
func (c *Coordinator) SetDesktopIcons(visible bool) error {
	return c.ops.SetDesktopIconsVisible(visible)
}

// Scenes returns point-in-time snapshots of all scenes in creation order.
func (c *Coordinator) Scenes() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Info, 0, len(c.scenes))
	for _, s := range c.scenes {
		out = append(out, infoFor(s))
	}
	return out
}

// Current returns a snapshot of the active scene, if any.
func (c *Coordinator) Current() (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Info{}, false
	}
	return infoFor(c.current), true
}

// CurrentWindows returns the windows of the active scene or, in desktop
// view, every scene-participating window.
func (c *Coordinator) CurrentWindows() []WindowInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []WindowInfo
	scenes := c.scenes
	if c.current != nil {
		scenes = []*Scene{c.current}
	}
	for _, s := range scenes {
		out = append(out, infoFor(s).Windows...)
	}
	return out
}
