//go:build linux

package platform

import "testing"

func TestStopBeforeStartIsNoop(t *testing.T) {
	b := NewBackend()
	b.Stop()
	b.Stop()
}

func TestChannelsAllocatedPerStart(t *testing.T) {
	b := NewBackend().(*x11Backend)
	if b.events != nil || b.pointer != nil || b.done != nil {
		t.Fatal("channels must not exist before Start; the event loop closes them on shutdown")
	}
}
