//go:build linux

package locate

import (
	"encoding/binary"
	"image"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// maxClientList is the number of 32 bit words read from _NET_CLIENT_LIST
const maxClientList = 4096

// x11Windows is the WindowSystem backed by an X11 connection using the EWMH
// properties set by the window manager
type x11Windows struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewWindowSystem connects to the X server named by $DISPLAY
func NewWindowSystem() (WindowSystem, error) {

	conn, err := xgb.NewConn()

	if err != nil {
		return nil, errors.Wrap(err, "error connecting to X server")
	}

	setup := xproto.Setup(conn)

	w := &x11Windows{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom),
	}

	atomNames := []string{
		"_NET_CLIENT_LIST",
		"_NET_WM_PID",
		"_NET_WM_NAME",
		"_NET_FRAME_EXTENTS",
		"UTF8_STRING",
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()

		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "error interning atom %s", name)
		}

		w.atoms[name] = reply.Atom
	}

	return w, nil
}

// Close closes the X connection
func (w *x11Windows) Close() error {
	w.conn.Close()
	return nil
}

func (w *x11Windows) property(win xproto.Window, atom, atomType xproto.Atom,
	length uint32) ([]byte, error) {

	reply, err := xproto.GetProperty(w.conn, false, win, atom, atomType, 0, length).Reply()

	if err != nil {
		return nil, err
	}

	return reply.Value, nil
}

// clients returns the managed top level windows, falling back to the
// children of the root window when no EWMH window manager is running
func (w *x11Windows) clients() ([]xproto.Window, error) {

	data, err := w.property(w.root, w.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, maxClientList)

	if err == nil && len(data) >= 4 {
		wins := make([]xproto.Window, 0, len(data)/4)

		for i := 0; i+4 <= len(data); i += 4 {
			wins = append(wins, xproto.Window(binary.LittleEndian.Uint32(data[i:])))
		}

		return wins, nil
	}

	tree, err := xproto.QueryTree(w.conn, w.root).Reply()

	if err != nil {
		return nil, errors.Wrap(err, "error querying window tree")
	}

	return tree.Children, nil
}

func (w *x11Windows) pid(win xproto.Window) int32 {

	data, err := w.property(win, w.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)

	if err != nil || len(data) < 4 {
		return 0
	}

	return int32(binary.LittleEndian.Uint32(data))
}

func (w *x11Windows) title(win xproto.Window) string {

	data, err := w.property(win, w.atoms["_NET_WM_NAME"], w.atoms["UTF8_STRING"], 256)

	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = w.property(win, xproto.AtomWmName, xproto.AtomString, 256)

	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (w *x11Windows) viewable(win xproto.Window) bool {

	attr, err := xproto.GetWindowAttributes(w.conn, win).Reply()

	if err != nil {
		return false
	}

	return attr.MapState == xproto.MapStateViewable
}

// Windows returns the top level windows in stacking order
func (w *x11Windows) Windows() ([]Window, error) {

	clients, err := w.clients()

	if err != nil {
		return nil, err
	}

	out := make([]Window, 0, len(clients))

	for _, win := range clients {
		out = append(out, Window{
			Handle:  Handle(win),
			PID:     w.pid(win),
			Title:   w.title(win),
			Visible: w.viewable(win),
		})
	}

	return out, nil
}

// Bounds measures the client window and adds the frame extents published by
// the window manager to give the outer rectangle
func (w *x11Windows) Bounds(h Handle) (Bounds, error) {

	win := xproto.Window(h)

	geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(win)).Reply()

	if err != nil {
		return Bounds{}, errors.Wrap(ErrInvalidHandle, err.Error())
	}

	pos, err := xproto.TranslateCoordinates(w.conn, win, w.root, 0, 0).Reply()

	if err != nil {
		return Bounds{}, errors.Wrap(ErrInvalidHandle, err.Error())
	}

	// left, right, top, bottom
	var ext [4]int

	data, err := w.property(win, w.atoms["_NET_FRAME_EXTENTS"], xproto.AtomCardinal, 4)

	if err == nil && len(data) >= 16 {
		for i := range ext {
			ext[i] = int(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}

	x := int(pos.DstX)
	y := int(pos.DstY)
	width := int(geom.Width)
	height := int(geom.Height)

	return Bounds{
		Outer:  image.Rect(x-ext[0], y-ext[2], x+width+ext[1], y+height+ext[3]),
		Client: image.Pt(width, height),
	}, nil
}
