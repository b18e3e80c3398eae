package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// DesktopWindow finds the window the file manager draws desktop icons on,
// identified by _NET_WM_WINDOW_TYPE_DESKTOP. Returns 0 when no such window
// exists (bare window managers draw nothing on the root).
func (c *Connection) DesktopWindow() (xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to query window tree: %w", err)
	}

	for _, child := range tree.Children {
		for _, t := range c.WindowTypes(child) {
			if t == "_NET_WM_WINDOW_TYPE_DESKTOP" {
				return child, nil
			}
		}
	}
	return 0, nil
}

// RootGeometry returns the dimensions of the root window.
func (c *Connection) RootGeometry() (Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return Rect{}, fmt.Errorf("failed to get root geometry: %w", err)
	}
	return Rect{Width: int(geom.Width), Height: int(geom.Height)}, nil
}

// SelectRootEvents subscribes the connection to structure, property, and
// button events on the root window. Fails when another client already owns
// the root button grab.
func (c *Connection) SelectRootEvents() error {
	mask := uint32(xproto.EventMaskSubstructureNotify |
		xproto.EventMaskPropertyChange |
		xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease)
	return xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), c.Root,
		xproto.CwEventMask, []uint32{mask}).Check()
}
