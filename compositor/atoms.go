// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// WMType mirrors a window's first _NET_WM_WINDOW_TYPE atom, narrowed to the
// EWMH-defined values (§4.1). WMTypeNone means the property is absent;
// WMTypeUnknown means it is present but set to something this package does
// not recognize.
type WMType int

const (
	WMTypeNone WMType = iota
	WMTypeUnknown
	WMTypeDesktop
	WMTypeDock
	WMTypeToolbar
	WMTypeMenu
	WMTypeUtility
	WMTypeSplash
	WMTypeDialog
	WMTypeDropdownMenu
	WMTypePopupMenu
	WMTypeTooltip
	WMTypeNotification
	WMTypeCombo
	WMTypeDND
	WMTypeNormal
)

func (t WMType) String() string {
	switch t {
	case WMTypeNone:
		return "none"
	case WMTypeDesktop:
		return "desktop"
	case WMTypeDock:
		return "dock"
	case WMTypeToolbar:
		return "toolbar"
	case WMTypeMenu:
		return "menu"
	case WMTypeUtility:
		return "utility"
	case WMTypeSplash:
		return "splash"
	case WMTypeDialog:
		return "dialog"
	case WMTypeDropdownMenu:
		return "dropdown-menu"
	case WMTypePopupMenu:
		return "popup-menu"
	case WMTypeTooltip:
		return "tooltip"
	case WMTypeNotification:
		return "notification"
	case WMTypeCombo:
		return "combo"
	case WMTypeDND:
		return "dnd"
	case WMTypeNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// wmTypeAtomNames lists the _NET_WM_WINDOW_TYPE_* atoms in the order their
// WMType constants are declared above (from WMTypeDesktop on).
var wmTypeAtomNames = []string{
	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_TOOLBAR",
	"_NET_WM_WINDOW_TYPE_MENU",
	"_NET_WM_WINDOW_TYPE_UTILITY",
	"_NET_WM_WINDOW_TYPE_SPLASH",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_COMBO",
	"_NET_WM_WINDOW_TYPE_DND",
	"_NET_WM_WINDOW_TYPE_NORMAL",
}

// atomTable is the EWMH/scratch atom cache every ClientWindow and the
// Compositor read from. It is interned once at startup and never mutated
// afterwards, so it is safe to share by pointer across the package.
type atomTable struct {
	netWMCMSn       xproto.Atom
	netWMWindowType xproto.Atom
	netActiveWindow xproto.Atom
	timestampProp   xproto.Atom

	wmTypeOf     map[xproto.Atom]WMType
	atomOfWMType map[WMType]xproto.Atom
}

func internAtoms(xc *xgb.Conn, screenNum int) (*atomTable, error) {
	t := &atomTable{
		wmTypeOf:     make(map[xproto.Atom]WMType, len(wmTypeAtomNames)),
		atomOfWMType: make(map[WMType]xproto.Atom, len(wmTypeAtomNames)),
	}

	var err error
	cmSnName := "_NET_WM_CM_S" + strconv.Itoa(screenNum)
	if t.netWMCMSn, err = internAtom(xc, cmSnName); err != nil {
		return nil, err
	}
	if t.netWMWindowType, err = internAtom(xc, "_NET_WM_WINDOW_TYPE"); err != nil {
		return nil, err
	}
	if t.netActiveWindow, err = internAtom(xc, "_NET_ACTIVE_WINDOW"); err != nil {
		return nil, err
	}
	if t.timestampProp, err = internAtom(xc, "_XCOMPOSITOR_TIMESTAMP"); err != nil {
		return nil, err
	}

	for i, name := range wmTypeAtomNames {
		a, err := internAtom(xc, name)
		if err != nil {
			return nil, err
		}
		wmType := WMType(int(WMTypeDesktop) + i)
		t.wmTypeOf[a] = wmType
		t.atomOfWMType[wmType] = a
	}

	return t, nil
}

func internAtom(xc *xgb.Conn, name string) (xproto.Atom, error) {
	r, err := xproto.InternAtom(xc, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("compositor: InternAtom(%s): %w", name, err)
	}
	if r == nil {
		return 0, fmt.Errorf("compositor: InternAtom(%s): no reply", name)
	}
	return r.Atom, nil
}

// wmTypeFromAtom narrows an arbitrary first-atom of _NET_WM_WINDOW_TYPE to
// a WMType: WMTypeNone if a is 0, WMTypeUnknown if a is set but not one of
// the fourteen EWMH-defined type atoms.
func (t *atomTable) wmTypeFromAtom(a xproto.Atom) WMType {
	if a == 0 {
		return WMTypeNone
	}
	if wt, ok := t.wmTypeOf[a]; ok {
		return wt
	}
	return WMTypeUnknown
}

// currentTimestamp obtains a current server timestamp without relying on
// any toolkit: it selects PropertyChange on win for this connection,
// changes a zero-length scratch property on win and waits for the
// resulting PropertyNotify, taking its Time field. Other events read while
// waiting are discarded. This is
// the standard ICCCM technique (the original implementation leaned on
// QX11Info::getTimestamp(), which performs exactly this trick internally;
// see SPEC_FULL.md §B.4).
func (t *atomTable) currentTimestamp(xc *xgb.Conn, win xproto.Window) (xproto.Timestamp, error) {
	xproto.ChangeWindowAttributes(xc, win, xproto.CwEventMask, []uint32{uint32(xproto.EventMaskPropertyChange)})
	xproto.ChangeProperty(xc, xproto.PropModeReplace, win, t.timestampProp, xproto.AtomInteger, 32, 0, nil)
	for {
		ev, err := xc.WaitForEvent()
		if err != nil {
			return 0, fmt.Errorf("compositor: currentTimestamp: %w", err)
		}
		pn, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok {
			continue
		}
		if pn.Window == win && pn.Atom == t.timestampProp {
			return pn.Time, nil
		}
	}
}
