// Package scene groups tracked windows into mutually exclusive scenes, one
// per running application instance, and owns the switching protocol that
// keeps exactly one scene's windows visible.
package scene

import (
	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/window"
)

// Scene is a named, ordered group of windows belonging to one process
// instance. Window order is insertion order. A scene's window sequence is
// never empty while the scene exists; emptiness removes the scene
// immediately.
//
// Scene state is mutated only by the Coordinator under its lock; callers
// outside the package observe scenes through Info snapshots.
type Scene struct {
	id       string
	groupKey string
	title    string
	windows  []*window.TrackedWindow
	selected bool
}

// ID returns the generated unique scene id.
func (s *Scene) ID() string { return s.id }

// GroupKey returns the membership key (owning process id as text).
func (s *Scene) GroupKey() string { return s.groupKey }

// Title returns the display title (the process name at creation).
func (s *Scene) Title() string { return s.title }

// Selected reports whether this scene is the active one.
func (s *Scene) Selected() bool { return s.selected }

// Windows returns a copy of the ordered window sequence.
func (s *Scene) Windows() []*window.TrackedWindow {
	return append([]*window.TrackedWindow(nil), s.windows...)
}

func (s *Scene) contains(h platform.WindowHandle) bool {
	for _, w := range s.windows {
		if w.Handle() == h {
			return true
		}
	}
	return false
}

func (s *Scene) append(w *window.TrackedWindow) {
	s.windows = append(s.windows, w)
}

func (s *Scene) remove(h platform.WindowHandle) bool {
	for i, w := range s.windows {
		if w.Handle() == h {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			return true
		}
	}
	return false
}

// last returns the most recently appended window, or nil.
func (s *Scene) last() *window.TrackedWindow {
	if len(s.windows) == 0 {
		return nil
	}
	return s.windows[len(s.windows)-1]
}

// ChangeKind classifies scene change events.
type ChangeKind int

const (
	ChangeCreated ChangeKind = iota
	ChangeUpdated
	ChangeRemoved
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// WindowInfo is a point-in-time description of a tracked window for external
// consumers.
type WindowInfo struct {
	Handle  uintptr `json:"handle"`
	Title   string  `json:"title"`
	Class   string  `json:"class"`
	PID     uint32  `json:"pid"`
	Process string  `json:"process"`
}

// Info is a point-in-time description of a scene for external consumers.
type Info struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	GroupKey string       `json:"group_key"`
	Selected bool         `json:"selected"`
	Windows  []WindowInfo `json:"windows"`
}

func infoFor(s *Scene) Info {
	wins := make([]WindowInfo, 0, len(s.windows))
	for _, w := range s.windows {
		proc := w.Process()
		wins = append(wins, WindowInfo{
			Handle:  uintptr(w.Handle()),
			Title:   w.Title(),
			Class:   w.Class(),
			PID:     proc.PID,
			Process: proc.Name,
		})
	}
	return Info{
		ID:       s.id,
		Title:    s.title,
		GroupKey: s.groupKey,
		Selected: s.selected,
		Windows:  wins,
	}
}
