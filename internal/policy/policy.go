package policy

import "strings"

// PersistentRule matches windows that must stay visible across every scene,
// identified by owning executable name plus a title substring heuristic.
type PersistentRule struct {
	Executable    string
	TitleContains string
}

// Ruleset is the declarative classification policy: which window classes and
// processes never participate in scene logic, which window classes count as
// desktop shell surface, and which windows are persistent.
//
// All matching is case-insensitive. The entries are heuristic and
// platform-version dependent; users extend or replace them through config.
type Ruleset struct {
	ClassDenylist   []string
	ProcessDenylist []string
	DesktopClasses  []string
	Persistent      []PersistentRule
}

// DeniedClass reports whether the window class is on the class denylist.
func (r *Ruleset) DeniedClass(class string) bool {
	return containsFold(r.ClassDenylist, class)
}

// DeniedProcess reports whether the process name is on the process denylist.
func (r *Ruleset) DeniedProcess(name string) bool {
	return containsFold(r.ProcessDenylist, name)
}

// IsDesktopClass reports whether the window class is a desktop shell surface
// (the class a click must land on to count as a desktop click).
func (r *Ruleset) IsDesktopClass(class string) bool {
	return containsFold(r.DesktopClasses, class)
}

// IsPersistent reports whether a window owned by the given executable with
// the given live title matches a persistent rule.
func (r *Ruleset) IsPersistent(executable, title string) bool {
	for _, rule := range r.Persistent {
		if !strings.EqualFold(rule.Executable, executable) {
			continue
		}
		if rule.TitleContains == "" ||
			strings.Contains(strings.ToLower(title), strings.ToLower(rule.TitleContains)) {
			return true
		}
	}
	return false
}

// Extend returns a copy of r with the given entries appended.
func (r *Ruleset) Extend(classes, processes, desktopClasses []string, persistent []PersistentRule) *Ruleset {
	out := &Ruleset{
		ClassDenylist:   append(append([]string(nil), r.ClassDenylist...), classes...),
		ProcessDenylist: append(append([]string(nil), r.ProcessDenylist...), processes...),
		DesktopClasses:  append(append([]string(nil), r.DesktopClasses...), desktopClasses...),
		Persistent:      append(append([]PersistentRule(nil), r.Persistent...), persistent...),
	}
	return out
}

func containsFold(list []string, value string) bool {
	for _, entry := range list {
		if strings.EqualFold(entry, value) {
			return true
		}
	}
	return false
}
