//go:build windows

package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	dwmapi = windows.NewLazySystemDLL("dwmapi.dll")

	procSetWinEventHook          = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent           = user32.NewProc("UnhookWinEvent")
	procSetWindowsHookExW        = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx      = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx           = user32.NewProc("CallNextHookEx")
	procGetMessageW              = user32.NewProc("GetMessageW")
	procPostThreadMessageW       = user32.NewProc("PostThreadMessageW")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowPlacement       = user32.NewProc("GetWindowPlacement")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procGetWindowLongPtrW        = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW        = user32.NewProc("SetWindowLongPtrW")
	procSetLayeredWindowAttrs    = user32.NewProc("SetLayeredWindowAttributes")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procBeginDeferWindowPos      = user32.NewProc("BeginDeferWindowPos")
	procDeferWindowPos           = user32.NewProc("DeferWindowPos")
	procEndDeferWindowPos        = user32.NewProc("EndDeferWindowPos")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
	procGetDoubleClickTime       = user32.NewProc("GetDoubleClickTime")
	procFindWindowW              = user32.NewProc("FindWindowW")
	procFindWindowExW            = user32.NewProc("FindWindowExW")
	procSendMessageW             = user32.NewProc("SendMessageW")
	procShowWindow               = user32.NewProc("ShowWindow")

	procDwmGetWindowAttribute = dwmapi.NewProc("DwmGetWindowAttribute")
)

const (
	eventSystemForeground     = 0x0003
	eventSystemMoveSizeStart  = 0x000A
	eventSystemMoveSizeEnd    = 0x000B
	eventSystemMinimizeStart  = 0x0016
	eventSystemMinimizeEnd    = 0x0017
	eventObjectDestroy        = 0x8001
	eventObjectShow           = 0x8002
	eventObjectLocationChange = 0x800B
	eventObjectCloaked        = 0x8017
	eventObjectUncloaked      = 0x8018

	winEventOutOfContext = 0x0000
	objidWindow          = 0

	whMouseLL     = 14
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmQuit        = 0x0012

	gwlStyle   = ^uintptr(15) // -16
	gwlExStyle = ^uintptr(19) // -20

	wsCaption     = 0x00C00000
	wsSysMenu     = 0x00080000
	wsThickFrame  = 0x00040000
	wsMinimizeBox = 0x00020000
	wsMaximizeBox = 0x00010000

	wsExToolWindow  = 0x00000080
	wsExNoActivate  = 0x08000000
	wsExLayered     = 0x00080000
	wsExTransparent = 0x00000020

	lwaAlpha = 0x02

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010

	swHide          = 0
	swShow          = 5
	swShowMinimized = 2
	swShowMaximized = 3

	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79

	dwmwaCloaked = 14

	lvmGetSelectedCount = 0x1032
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type winPlacement struct {
	Length         uint32
	Flags          uint32
	ShowCmd        uint32
	MinPosition    [2]int32
	MaxPosition    [2]int32
	NormalPosition winRect
}

type winMsg struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      [2]int32
}

// winBackend implements Backend on top of Win32. All event subscriptions and
// the low-level mouse hook live on one dedicated locked OS thread running a
// message pump; hook callbacks push into buffered channels and never block.
type winBackend struct {
	mu       sync.Mutex
	started  bool
	events   chan Event
	pointer  chan PointerEvent
	threadID uint32
	done     chan struct{}
}

// NewBackend returns the Win32 backend.
func NewBackend() Backend {
	return &winBackend{}
}

func (b *winBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.events = make(chan Event, 256)
	b.pointer = make(chan PointerEvent, 64)
	b.done = make(chan struct{})
	b.mu.Unlock()

	installed := make(chan error, 1)
	go b.eventLoop(installed)

	if err := <-installed; err != nil {
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		return err
	}
	return nil
}

// eventLoop runs on its own locked OS thread: the win-event hooks and the
// low-level mouse hook both require a thread with an active message pump.
func (b *winBackend) eventLoop(installed chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.done)

	tid := windows.GetCurrentThreadId()
	b.mu.Lock()
	b.threadID = tid
	b.mu.Unlock()

	winEventCb := windows.NewCallback(b.onWinEvent)
	mouseCb := windows.NewCallback(b.onMouseEvent)

	ranges := [][2]uintptr{
		{eventSystemForeground, eventSystemForeground},
		{eventSystemMoveSizeStart, eventSystemMoveSizeEnd},
		{eventSystemMinimizeStart, eventSystemMinimizeEnd},
		{eventObjectDestroy, eventObjectShow},
		{eventObjectLocationChange, eventObjectLocationChange},
		{eventObjectCloaked, eventObjectUncloaked},
	}
	var hooks []uintptr
	unhookAll := func() {
		for _, h := range hooks {
			procUnhookWinEvent.Call(h)
		}
	}
	for _, r := range ranges {
		h, _, _ := procSetWinEventHook.Call(r[0], r[1], 0, winEventCb, 0, 0, winEventOutOfContext)
		if h == 0 {
			unhookAll()
			installed <- fmt.Errorf("SetWinEventHook failed for range %#x-%#x", r[0], r[1])
			return
		}
		hooks = append(hooks, h)
	}

	mouseHook, _, err := procSetWindowsHookExW.Call(whMouseLL, mouseCb, 0, 0)
	if mouseHook == 0 {
		unhookAll()
		installed <- fmt.Errorf("failed to install mouse hook: %w", err)
		return
	}

	installed <- nil

	var msg winMsg
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if ret == 0 || int32(ret) == -1 {
			break
		}
	}

	procUnhookWindowsHookEx.Call(mouseHook)
	unhookAll()
	close(b.events)
	close(b.pointer)
}

func (b *winBackend) onWinEvent(hook, event, hwnd, idObject, idChild, thread, eventTime uintptr) uintptr {
	if int32(idObject) != objidWindow || int32(idChild) != 0 || hwnd == 0 {
		return 0
	}

	var kind EventKind
	switch event {
	case eventObjectShow:
		kind = EventShown
	case eventObjectDestroy:
		kind = EventDestroyed
	case eventObjectCloaked:
		kind = EventCloaked
	case eventObjectUncloaked:
		kind = EventUncloaked
	case eventSystemMinimizeStart:
		kind = EventMinimizeStart
	case eventSystemMinimizeEnd:
		kind = EventMinimizeEnd
	case eventSystemForeground:
		kind = EventForeground
	case eventSystemMoveSizeStart:
		kind = EventMoveSizeStart
	case eventSystemMoveSizeEnd:
		kind = EventMoveSizeEnd
	case eventObjectLocationChange:
		kind = EventLocationChange
	default:
		return 0
	}

	// Never block the hook thread; a full channel drops the event and the
	// reconciler catches up later.
	select {
	case b.events <- Event{Kind: kind, Handle: WindowHandle(hwnd)}:
	default:
	}
	return 0
}

func (b *winBackend) onMouseEvent(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		switch wParam {
		case wmLButtonDown:
			select {
			case b.pointer <- PointerEvent{Down: true, At: time.Now()}:
			default:
			}
		case wmLButtonUp:
			select {
			case b.pointer <- PointerEvent{Down: false, At: time.Now()}:
			default:
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func (b *winBackend) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	tid := b.threadID
	done := b.done
	b.mu.Unlock()

	if tid != 0 {
		procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
	}
	if done != nil {
		<-done
	}
}

func (b *winBackend) Events() <-chan Event         { return b.events }
func (b *winBackend) Pointer() <-chan PointerEvent { return b.pointer }

// The enumeration callback is created once: NewCallback slots are a finite
// process-wide resource.
var (
	enumMu     sync.Mutex
	enumResult []WindowHandle
	enumCb     = windows.NewCallback(func(hwnd, lparam uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible != 0 {
			enumResult = append(enumResult, WindowHandle(hwnd))
		}
		return 1
	})
)

func (b *winBackend) Enumerate() ([]WindowHandle, error) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumResult = nil
	ret, _, err := procEnumWindows.Call(enumCb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows failed: %w", err)
	}
	handles := enumResult
	enumResult = nil
	return handles, nil
}

func (b *winBackend) IsWindow(h WindowHandle) bool {
	ret, _, _ := procIsWindow.Call(uintptr(h))
	return ret != 0
}

func (b *winBackend) IsVisible(h WindowHandle) bool {
	ret, _, _ := procIsWindowVisible.Call(uintptr(h))
	return ret != 0
}

func (b *winBackend) styles(h WindowHandle) (style, exstyle uintptr, err error) {
	style, _, _ = procGetWindowLongPtrW.Call(uintptr(h), gwlStyle)
	exstyle, _, callErr := procGetWindowLongPtrW.Call(uintptr(h), gwlExStyle)
	if style == 0 && exstyle == 0 && !b.IsWindow(h) {
		return 0, 0, fmt.Errorf("window %#x is gone: %v", uintptr(h), callErr)
	}
	return style, exstyle, nil
}

func (b *winBackend) cloaked(h WindowHandle) bool {
	var value uint32
	ret, _, _ := procDwmGetWindowAttribute.Call(
		uintptr(h), dwmwaCloaked,
		uintptr(unsafe.Pointer(&value)), unsafe.Sizeof(value))
	return ret == 0 && value != 0
}

func (b *winBackend) ProbeWindow(h WindowHandle) (Probe, error) {
	if !b.IsWindow(h) {
		return Probe{}, fmt.Errorf("window %#x is gone", uintptr(h))
	}
	style, exstyle, err := b.styles(h)
	if err != nil {
		return Probe{}, err
	}
	return Probe{
		Visible:          b.IsVisible(h),
		Cloaked:          b.cloaked(h),
		ToolWindow:       exstyle&wsExToolWindow != 0,
		SwitcherExcluded: exstyle&wsExNoActivate != 0,
		TitleBar:         style&wsCaption == wsCaption,
		SystemMenu:       style&wsSysMenu != 0,
		MinimizeBox:      style&wsMinimizeBox != 0,
		MaximizeBox:      style&wsMaximizeBox != 0,
		SizableFrame:     style&wsThickFrame != 0,
	}, nil
}

func (b *winBackend) Title(h WindowHandle) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func (b *winBackend) ClassName(h WindowHandle) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetClassNameW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func (b *winBackend) Geometry(h WindowHandle) (Rect, WindowState, error) {
	var rc winRect
	if ret, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&rc))); ret == 0 {
		return Rect{}, StateNormal, fmt.Errorf("GetWindowRect failed: %w", err)
	}
	rect := Rect{
		X:      int(rc.Left),
		Y:      int(rc.Top),
		Width:  int(rc.Right - rc.Left),
		Height: int(rc.Bottom - rc.Top),
	}

	placement := winPlacement{Length: uint32(unsafe.Sizeof(winPlacement{}))}
	if ret, _, err := procGetWindowPlacement.Call(uintptr(h), uintptr(unsafe.Pointer(&placement))); ret == 0 {
		return rect, StateNormal, fmt.Errorf("GetWindowPlacement failed: %w", err)
	}
	state := StateNormal
	switch placement.ShowCmd {
	case swShowMinimized:
		state = StateMinimized
	case swShowMaximized:
		state = StateMaximized
	}
	return rect, state, nil
}

func (b *winBackend) Process(h WindowHandle) (ProcessInfo, error) {
	var pid uint32
	procGetWindowThreadProcessId.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return Unattributed(), fmt.Errorf("no process for window %#x", uintptr(h))
	}

	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		// Access denied or already exited: identified by pid only.
		return ProcessInfo{PID: pid, Name: UnattributedName}, nil
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return ProcessInfo{PID: pid, Name: UnattributedName}, nil
	}
	path := windows.UTF16ToString(buf[:size])
	return ProcessInfo{
		PID:        pid,
		Name:       filepath.Base(path),
		Path:       path,
		Attributed: true,
	}, nil
}

func (b *winBackend) Foreground() WindowHandle {
	ret, _, _ := procGetForegroundWindow.Call()
	return WindowHandle(ret)
}

func (b *winBackend) Focus(h WindowHandle) error {
	if ret, _, err := procSetForegroundWindow.Call(uintptr(h)); ret == 0 {
		return fmt.Errorf("SetForegroundWindow failed: %w", err)
	}
	return nil
}

func (b *winBackend) Raise(h WindowHandle) error {
	if ret, _, err := procSetWindowPos.Call(uintptr(h), 0, 0, 0, 0, 0,
		swpNoMove|swpNoSize|swpNoActivate); ret == 0 {
		return fmt.Errorf("SetWindowPos failed: %w", err)
	}
	return nil
}

func (b *winBackend) StyleSnapshot(h WindowHandle) (Style, error) {
	if !b.IsWindow(h) {
		return 0, fmt.Errorf("window %#x is gone", uintptr(h))
	}
	_, exstyle, err := b.styles(h)
	if err != nil {
		return 0, err
	}
	return Style(exstyle), nil
}

func (b *winBackend) RestoreStyle(h WindowHandle, s Style) error {
	return b.setExStyle(h, uintptr(s))
}

func (b *winBackend) setExStyle(h WindowHandle, exstyle uintptr) error {
	procSetWindowLongPtrW.Call(uintptr(h), gwlExStyle, exstyle)
	if !b.IsWindow(h) {
		return fmt.Errorf("window %#x is gone", uintptr(h))
	}
	return nil
}

func (b *winBackend) EnterGhostStyle(h WindowHandle) error {
	_, exstyle, err := b.styles(h)
	if err != nil {
		return err
	}
	return b.setExStyle(h, exstyle|wsExLayered|wsExTransparent)
}

func (b *winBackend) PrepareFade(h WindowHandle) error {
	_, exstyle, err := b.styles(h)
	if err != nil {
		return err
	}
	return b.setExStyle(h, (exstyle|wsExLayered)&^uintptr(wsExTransparent))
}

func (b *winBackend) SetAlpha(h WindowHandle, alpha uint8) error {
	if ret, _, err := procSetLayeredWindowAttrs.Call(uintptr(h), 0, uintptr(alpha), lwaAlpha); ret == 0 {
		return fmt.Errorf("SetLayeredWindowAttributes failed: %w", err)
	}
	return nil
}

func (b *winBackend) Position(h WindowHandle) (Point, error) {
	rect, _, err := b.Geometry(h)
	if err != nil {
		return Point{}, err
	}
	return Point{X: rect.X, Y: rect.Y}, nil
}

func (b *winBackend) MoveTo(h WindowHandle, p Point) error {
	if ret, _, err := procSetWindowPos.Call(uintptr(h), 0,
		uintptr(p.X), uintptr(p.Y), 0, 0,
		swpNoSize|swpNoZOrder|swpNoActivate); ret == 0 {
		return fmt.Errorf("SetWindowPos failed: %w", err)
	}
	return nil
}

func (b *winBackend) OffscreenPoint() Point {
	x, _, _ := procGetSystemMetrics.Call(smXVirtualScreen)
	w, _, _ := procGetSystemMetrics.Call(smCXVirtualScreen)
	y, _, _ := procGetSystemMetrics.Call(smYVirtualScreen)
	hgt, _, _ := procGetSystemMetrics.Call(smCYVirtualScreen)
	return Point{
		X: int(int32(x)) + int(int32(w)) + 4096,
		Y: int(int32(y)) + int(int32(hgt)) + 4096,
	}
}

type winBatch struct {
	backend *winBackend
	hdwp    uintptr
}

func (b *winBackend) BeginBatch(capacity int) (Batch, error) {
	if capacity <= 0 {
		capacity = 4
	}
	hdwp, _, err := procBeginDeferWindowPos.Call(uintptr(capacity))
	if hdwp == 0 {
		return nil, fmt.Errorf("BeginDeferWindowPos failed: %w", err)
	}
	return &winBatch{backend: b, hdwp: hdwp}, nil
}

func (wb *winBatch) Move(h WindowHandle, p Point) error {
	hdwp, _, err := procDeferWindowPos.Call(wb.hdwp, uintptr(h), 0,
		uintptr(p.X), uintptr(p.Y), 0, 0,
		swpNoSize|swpNoZOrder|swpNoActivate)
	if hdwp == 0 {
		return fmt.Errorf("DeferWindowPos failed: %w", err)
	}
	wb.hdwp = hdwp
	return nil
}

func (wb *winBatch) End() error {
	if ret, _, err := procEndDeferWindowPos.Call(wb.hdwp); ret == 0 {
		return fmt.Errorf("EndDeferWindowPos failed: %w", err)
	}
	return nil
}

// desktopListView locates the icon list view under the desktop shell window.
// On some shell versions the SHELLDLL_DefView lives under a WorkerW instead
// of Progman.
func (b *winBackend) desktopListView() (defView, listView uintptr) {
	progman, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(utf16Ptr("Progman"))), 0)
	if progman != 0 {
		defView, _, _ = procFindWindowExW.Call(progman, 0, uintptr(unsafe.Pointer(utf16Ptr("SHELLDLL_DefView"))), 0)
	}
	if defView == 0 {
		var worker uintptr
		for {
			worker, _, _ = procFindWindowExW.Call(0, worker, uintptr(unsafe.Pointer(utf16Ptr("WorkerW"))), 0)
			if worker == 0 {
				break
			}
			defView, _, _ = procFindWindowExW.Call(worker, 0, uintptr(unsafe.Pointer(utf16Ptr("SHELLDLL_DefView"))), 0)
			if defView != 0 {
				break
			}
		}
	}
	if defView == 0 {
		return 0, 0
	}
	listView, _, _ = procFindWindowExW.Call(defView, 0, uintptr(unsafe.Pointer(utf16Ptr("SysListView32"))), 0)
	return defView, listView
}

func utf16Ptr(s string) *uint16 {
	p, _ := windows.UTF16PtrFromString(s)
	return p
}

func (b *winBackend) DesktopIconsVisible() (bool, error) {
	defView, _ := b.desktopListView()
	if defView == 0 {
		return false, fmt.Errorf("desktop icon layer not found")
	}
	ret, _, _ := procIsWindowVisible.Call(defView)
	return ret != 0, nil
}

func (b *winBackend) SetDesktopIconsVisible(visible bool) error {
	defView, _ := b.desktopListView()
	if defView == 0 {
		return fmt.Errorf("desktop icon layer not found")
	}
	cmd := uintptr(swHide)
	if visible {
		cmd = swShow
	}
	procShowWindow.Call(defView, cmd)
	return nil
}

func (b *winBackend) DesktopSelectionActive() bool {
	_, listView := b.desktopListView()
	if listView == 0 {
		return false
	}
	count, _, _ := procSendMessageW.Call(listView, lvmGetSelectedCount, 0, 0)
	return count > 0
}

func (b *winBackend) DoubleClickInterval() time.Duration {
	ms, _, _ := procGetDoubleClickTime.Call()
	if ms == 0 {
		ms = 500
	}
	return time.Duration(ms) * time.Millisecond
}
