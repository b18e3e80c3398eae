// Package visibility makes windows invisible and visible again without
// minimizing them, so live previews keep repainting and rendering state is
// preserved. Hiding uses layered transparency with an off-screen relocation
// fallback for windows that do not honor alpha.
package visibility

import (
	"sync"
	"time"

	"github.com/sceneshift/sceneshift/internal/platform"
)

// Ops is the subset of platform operations the engine needs. Implemented by
// the platform backend.
type Ops interface {
	IsWindow(platform.WindowHandle) bool
	IsVisible(platform.WindowHandle) bool
	Geometry(platform.WindowHandle) (platform.Rect, platform.WindowState, error)
	StyleSnapshot(platform.WindowHandle) (platform.Style, error)
	RestoreStyle(platform.WindowHandle, platform.Style) error
	EnterGhostStyle(platform.WindowHandle) error
	PrepareFade(platform.WindowHandle) error
	SetAlpha(platform.WindowHandle, uint8) error
	Position(platform.WindowHandle) (platform.Point, error)
	MoveTo(platform.WindowHandle, platform.Point) error
	OffscreenPoint() platform.Point
	Raise(platform.WindowHandle) error
}

// Engine hides and shows windows. Operations on the same handle are
// serialized by a per-handle lock; operations on different handles never
// block each other. Both operations are idempotent, and any call targeting a
// destroyed handle is a silent no-op.
type Engine struct {
	ops          Ops
	fadeDuration time.Duration
	fadeSteps    int

	mu      sync.Mutex
	entries map[platform.WindowHandle]*entry
}

// entry is the per-handle state. The lock is created on demand and kept for
// the handle's lifetime. style and pos are present only while the window is
// hidden (and, for pos, only when the off-screen fallback was used). gen
// invalidates in-flight fade animations.
type entry struct {
	mu    sync.Mutex
	gen   uint64
	style *platform.Style
	pos   *platform.Point
}

// New creates a visibility engine. fadeDuration is the total show animation
// length, divided into fadeSteps discrete alpha increments.
func New(ops Ops, fadeDuration time.Duration, fadeSteps int) *Engine {
	if fadeSteps < 1 {
		fadeSteps = 1
	}
	return &Engine{
		ops:          ops,
		fadeDuration: fadeDuration,
		fadeSteps:    fadeSteps,
		entries:      make(map[platform.WindowHandle]*entry),
	}
}

// SetFade replaces the show-animation parameters. Fades already in flight
// finish with the values they started with.
func (e *Engine) SetFade(fadeDuration time.Duration, fadeSteps int) {
	if fadeSteps < 1 {
		fadeSteps = 1
	}
	e.mu.Lock()
	e.fadeDuration = fadeDuration
	e.fadeSteps = fadeSteps
	e.mu.Unlock()
}

func (e *Engine) fadeParams() (time.Duration, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fadeDuration, e.fadeSteps
}

func (e *Engine) entryFor(h platform.WindowHandle) *entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[h]
	if !ok {
		en = &entry{}
		e.entries[h] = en
	}
	return en
}

// eligible reports whether the window can be operated on at all: it must
// still exist, be visible at the OS level, and not be minimized. A state read
// failure means the window is already gone.
func (e *Engine) eligible(h platform.WindowHandle) bool {
	if !e.ops.IsWindow(h) || !e.ops.IsVisible(h) {
		return false
	}
	_, state, err := e.ops.Geometry(h)
	if err != nil {
		return false
	}
	return state != platform.StateMinimized
}

// Hide makes the window invisible immediately, with no animation, so there is
// never a frame where an outgoing and an incoming scene are both opaque. The
// window stays technically present (not minimized).
func (e *Engine) Hide(h platform.WindowHandle) {
	en := e.entryFor(h)
	en.mu.Lock()
	defer en.mu.Unlock()

	if !e.eligible(h) {
		return
	}

	// Cancel any in-flight fade before mutating.
	en.gen++

	if en.style == nil {
		style, err := e.ops.StyleSnapshot(h)
		if err != nil {
			// Style unreadable: treat as already gone.
			return
		}
		en.style = &style
	}

	if err := e.ops.EnterGhostStyle(h); err != nil {
		return
	}

	// Probe with a minimal alpha first: some windows never honor layered
	// transparency, and for those the only option is to park them outside all
	// monitor bounds.
	if err := e.ops.SetAlpha(h, 1); err != nil {
		if en.pos == nil {
			if p, perr := e.ops.Position(h); perr == nil {
				en.pos = &p
			}
		}
		_ = e.ops.MoveTo(h, e.ops.OffscreenPoint())
		return
	}
	_ = e.ops.SetAlpha(h, 0)
}

// Show restores the window's recorded position and style and fades it in,
// then raises it to the top of the stacking order. Minimized windows are left
// alone. Showing a window the engine never hid is a no-op.
func (e *Engine) Show(h platform.WindowHandle) {
	en := e.entryFor(h)
	en.mu.Lock()
	defer en.mu.Unlock()

	if en.style == nil {
		return
	}
	if !e.eligible(h) {
		if !e.ops.IsWindow(h) {
			// Handle destroyed while hidden; drop the restoration state.
			en.style = nil
			en.pos = nil
		}
		return
	}

	base := *en.style
	en.style = nil

	if en.pos != nil {
		_ = e.ops.MoveTo(h, *en.pos)
		en.pos = nil
	}

	_ = e.ops.RestoreStyle(h, base)
	if err := e.ops.PrepareFade(h); err != nil {
		return
	}
	_ = e.ops.SetAlpha(h, 0)

	en.gen++
	go e.fadeIn(h, en, base, en.gen)
}

// fadeIn animates alpha from 0 to opaque in discrete steps, re-validating
// before each write so a concurrent hide or destroy simply stops the
// animation. On completion the captured style is restored exactly and the
// window is raised.
func (e *Engine) fadeIn(h platform.WindowHandle, en *entry, base platform.Style, gen uint64) {
	duration, steps := e.fadeParams()
	stepDelay := duration / time.Duration(steps)
	for i := 1; i <= steps; i++ {
		time.Sleep(stepDelay)

		en.mu.Lock()
		if en.gen != gen || !e.ops.IsWindow(h) {
			en.mu.Unlock()
			return
		}
		alpha := uint8((255 * i) / steps)
		_ = e.ops.SetAlpha(h, alpha)
		en.mu.Unlock()
	}

	en.mu.Lock()
	defer en.mu.Unlock()
	if en.gen != gen || !e.ops.IsWindow(h) {
		return
	}
	_ = e.ops.RestoreStyle(h, base)
	_ = e.ops.Raise(h)
}

// Hidden reports whether the engine currently holds restoration state for the
// handle, i.e. the window is under a manual hide.
func (e *Engine) Hidden(h platform.WindowHandle) bool {
	e.mu.Lock()
	en, ok := e.entries[h]
	e.mu.Unlock()
	if !ok {
		return false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.style != nil
}

// Forget drops any restoration state for a destroyed handle without touching
// the window.
func (e *Engine) Forget(h platform.WindowHandle) {
	e.mu.Lock()
	en, ok := e.entries[h]
	e.mu.Unlock()
	if !ok {
		return
	}
	en.mu.Lock()
	en.gen++
	en.style = nil
	en.pos = nil
	en.mu.Unlock()
}

// RestoreAll reverts every window still under a manual hide to its captured
// style and position without animation. Called on daemon shutdown so no
// window is left invisible.
func (e *Engine) RestoreAll() {
	e.mu.Lock()
	handles := make([]platform.WindowHandle, 0, len(e.entries))
	for h := range e.entries {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	for _, h := range handles {
		en := e.entryFor(h)
		en.mu.Lock()
		en.gen++
		if en.style != nil && e.ops.IsWindow(h) {
			if en.pos != nil {
				_ = e.ops.MoveTo(h, *en.pos)
			}
			_ = e.ops.PrepareFade(h)
			_ = e.ops.SetAlpha(h, 255)
			_ = e.ops.RestoreStyle(h, *en.style)
		}
		en.style = nil
		en.pos = nil
		en.mu.Unlock()
	}
}
