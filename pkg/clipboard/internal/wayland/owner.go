//go:build linux

package wayland

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
)

// Client-side object ids, allocated in request order.
const (
	objDisplay uint32 = iota + 1
	objRegistry
	objGlobalsSync
	objSeat
	objManager
	objSource
	objDevice
	objOwnedSync
)

const (
	displaySync        uint16 = 0
	displayGetRegistry uint16 = 1
	registryBind       uint16 = 0
	managerNewSource   uint16 = 0
	managerGetDevice   uint16 = 1
	sourceOffer        uint16 = 0
	deviceSetSelection uint16 = 0

	eventGlobal    uint16 = 0
	eventDone      uint16 = 0
	eventSend      uint16 = 0
	eventCancelled uint16 = 1
)

const managerInterface = "zwlr_data_control_manager_v1"

// SocketPath resolves the compositor socket from XDG_RUNTIME_DIR and
// WAYLAND_DISPLAY.
func SocketPath() (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("wayland: XDG_RUNTIME_DIR not set")
	}
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	return filepath.Join(runtimeDir, display), nil
}

// Own makes this process the clipboard selection owner offering every MIME
// type in offers. ready is called once the compositor has acknowledged the
// selection. Own blocks, answering paste requests, until another client takes
// the selection or the compositor goes away.
func Own(offers map[string][]byte, ready func()) error {
	path, err := SocketPath()
	if err != nil {
		return err
	}
	c, err := dial(path)
	if err != nil {
		return fmt.Errorf("wayland: connect %s: %w", path, err)
	}
	defer c.close()

	seat, manager, err := discover(c)
	if err != nil {
		return err
	}

	if err := claim(c, seat, manager, offers); err != nil {
		return err
	}
	if ready != nil {
		ready()
	}
	return serve(c, offers)
}

// discover lists the registry globals and returns the names of the seat and
// the data-control manager.
func discover(c *conn) (seat, manager uint32, err error) {
	if err := c.request(objDisplay, displayGetRegistry, u32(objRegistry)); err != nil {
		return 0, 0, err
	}
	if err := c.request(objDisplay, displaySync, u32(objGlobalsSync)); err != nil {
		return 0, 0, err
	}

	var haveSeat, haveManager bool
	for {
		ev, err := c.next()
		if err != nil {
			return 0, 0, err
		}
		ev.closeFD()

		if ev.object == objGlobalsSync && ev.opcode == eventDone {
			break
		}
		if ev.object != objRegistry || ev.opcode != eventGlobal || len(ev.payload) < 4 {
			continue
		}
		name := order.Uint32(ev.payload)
		iface, _, err := readStr(ev.payload[4:])
		if err != nil {
			continue
		}
		switch iface {
		case "wl_seat":
			if !haveSeat {
				seat, haveSeat = name, true
			}
		case managerInterface:
			manager, haveManager = name, true
		}
	}

	if !haveSeat {
		return 0, 0, fmt.Errorf("wayland: no wl_seat global")
	}
	if !haveManager {
		return 0, 0, fmt.Errorf("wayland: compositor does not offer %s", managerInterface)
	}
	return seat, manager, nil
}

func claim(c *conn, seat, manager uint32, offers map[string][]byte) error {
	// wl_registry.bind carries an untyped new_id: interface, version, id.
	if err := c.request(objRegistry, registryBind, u32(seat), str("wl_seat"), u32(1), u32(objSeat)); err != nil {
		return err
	}
	if err := c.request(objRegistry, registryBind, u32(manager), str(managerInterface), u32(2), u32(objManager)); err != nil {
		return err
	}
	if err := c.request(objManager, managerNewSource, u32(objSource)); err != nil {
		return err
	}

	mimeTypes := make([]string, 0, len(offers))
	for mime := range offers {
		mimeTypes = append(mimeTypes, mime)
	}
	sort.Strings(mimeTypes)
	for _, mime := range mimeTypes {
		if err := c.request(objSource, sourceOffer, str(mime)); err != nil {
			return err
		}
	}

	if err := c.request(objManager, managerGetDevice, u32(objDevice), u32(objSeat)); err != nil {
		return err
	}
	if err := c.request(objDevice, deviceSetSelection, u32(objSource)); err != nil {
		return err
	}
	if err := c.request(objDisplay, displaySync, u32(objOwnedSync)); err != nil {
		return err
	}

	for {
		ev, err := c.next()
		if err != nil {
			return err
		}
		ev.closeFD()
		if ev.object == objOwnedSync && ev.opcode == eventDone {
			return nil
		}
	}
}

func serve(c *conn, offers map[string][]byte) error {
	for {
		ev, err := c.next()
		if err != nil {
			// compositor gone: nothing left to own
			return nil
		}
		if ev.object != objSource {
			ev.closeFD()
			continue
		}

		switch ev.opcode {
		case eventSend:
			mime, _, _ := readStr(ev.payload)
			if ev.fd >= 0 {
				if data, ok := offers[mime]; ok {
					writeAll(ev.fd, data)
				}
			}
			ev.closeFD()
		case eventCancelled:
			ev.closeFD()
			return nil
		default:
			ev.closeFD()
		}
	}
}

func writeAll(fd int, data []byte) {
	for len(data) > 0 {
		n, err := syscall.Write(fd, data)
		if err != nil || n <= 0 {
			return
		}
		data = data[n:]
	}
}
