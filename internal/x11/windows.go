package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Rect holds a window's outer frame in root coordinates.
type Rect struct {
	X, Y          int
	Width, Height int
}

// ListClients returns the windows managed by the window manager, bottom to top.
func (c *Connection) ListClients() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// ActiveWindow returns the currently focused top-level window, or 0 when the
// focus is on the desktop.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// ActivateWindow asks the window manager to focus and raise win.
//
// The ewmh helper for _NET_ACTIVE_WINDOW panics on this library version, so
// the client message is built by hand.
func (c *Connection) ActivateWindow(win xproto.Window) error {
	atom, err := c.Atom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			2, // source: pager
			0, // timestamp
			0, // currently active window
			0,
			0,
		}),
	}

	return xproto.SendEventChecked(c.XUtil.Conn(), false, c.Root,
		xproto.EventMaskSubstructureNotify|xproto.EventMaskSubstructureRedirect,
		string(ev.Bytes())).Check()
}

// RaiseWindow restacks win above its siblings without changing focus.
func (c *Connection) RaiseWindow(win xproto.Window) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), win,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove}).Check()
}

// MoveWindow repositions win's top-left corner in root coordinates.
func (c *Connection) MoveWindow(win xproto.Window, x, y int) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), win,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(x), uint32(y)}).Check()
}

// MapWindow makes win viewable again after an Unmap.
func (c *Connection) MapWindow(win xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), win).Check()
}

// UnmapWindow removes win from the screen without destroying it.
func (c *Connection) UnmapWindow(win xproto.Window) error {
	return xproto.UnmapWindowChecked(c.XUtil.Conn(), win).Check()
}

// WindowGeometry returns win's frame translated into root coordinates.
func (c *Connection) WindowGeometry(win xproto.Window) (Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return Rect{}, fmt.Errorf("failed to get geometry: %w", err)
	}

	trans, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return Rect{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	return Rect{
		X:      int(trans.DstX),
		Y:      int(trans.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// IsViewable reports whether win is currently mapped.
func (c *Connection) IsViewable(win xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return false, err
	}
	return attrs.MapState == xproto.MapStateViewable, nil
}

// WindowTitle returns win's title, preferring the EWMH name over the ICCCM one.
func (c *Connection) WindowTitle(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		return name
	}
	return ""
}

// WindowClass returns the WM_CLASS class name of win.
func (c *Connection) WindowClass(win xproto.Window) string {
	class, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil || class == nil {
		return ""
	}
	return class.Class
}

// WindowPID returns the process that owns win, per _NET_WM_PID.
func (c *Connection) WindowPID(win xproto.Window) (uint32, error) {
	pid, err := ewmh.WmPidGet(c.XUtil, win)
	if err != nil {
		return 0, err
	}
	return uint32(pid), nil
}

// WindowStates returns win's _NET_WM_STATE atoms as names.
func (c *Connection) WindowStates(win xproto.Window) []string {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return nil
	}
	return states
}

// WindowTypes returns win's _NET_WM_WINDOW_TYPE atoms as names.
func (c *Connection) WindowTypes(win xproto.Window) []string {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return nil
	}
	return types
}

// Opacity returns win's _NET_WM_WINDOW_OPACITY value and whether the property
// is set. An unset property means fully opaque.
func (c *Connection) Opacity(win xproto.Window) (uint32, bool) {
	raw, err := xprop.GetProperty(c.XUtil, win, "_NET_WM_WINDOW_OPACITY")
	if err != nil {
		return 0, false
	}
	val, err := xprop.PropValNum(raw, nil)
	if err != nil {
		return 0, false
	}
	return uint32(val), true
}

// SetOpacity sets win's _NET_WM_WINDOW_OPACITY; compositors map 0 to invisible
// and 0xffffffff to opaque.
func (c *Connection) SetOpacity(win xproto.Window, opacity uint32) error {
	return xprop.ChangeProp32(c.XUtil, win, "_NET_WM_WINDOW_OPACITY", "CARDINAL", uint(opacity))
}

// ClearOpacity removes the opacity property, restoring full opacity.
func (c *Connection) ClearOpacity(win xproto.Window) error {
	atom, err := c.Atom("_NET_WM_WINDOW_OPACITY")
	if err != nil {
		return err
	}
	return xproto.DeletePropertyChecked(c.XUtil.Conn(), win, atom).Check()
}
