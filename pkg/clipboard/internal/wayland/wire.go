//go:build linux

// Package wayland owns the Wayland clipboard through the wlr-data-control
// protocol, speaking the wire format directly over the compositor socket.
package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"syscall"
)

var order = binary.LittleEndian

// event is one decoded server message. fd is -1 unless the message carried a
// file descriptor.
type event struct {
	object  uint32
	opcode  uint16
	payload []byte
	fd      int
}

func (e event) closeFD() {
	if e.fd >= 0 {
		syscall.Close(e.fd) //nolint:errcheck
	}
}

type conn struct {
	fd  int
	buf []byte
	fds []int
}

func dial(path string) (*conn, error) {
	fd, err := syscall.Socket(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := syscall.Connect(fd, &syscall.SockaddrUnix{Name: path}); err != nil {
		syscall.Close(fd) //nolint:errcheck
		return nil, err
	}
	return &conn{fd: fd}, nil
}

func (c *conn) close() {
	for _, fd := range c.fds {
		syscall.Close(fd) //nolint:errcheck
	}
	syscall.Close(c.fd) //nolint:errcheck
}

// request writes one message: object id, then opcode and total size packed
// into the second word, then the arguments.
func (c *conn) request(object uint32, opcode uint16, args ...[]byte) error {
	size := 8
	for _, a := range args {
		size += len(a)
	}
	msg := make([]byte, 8, size)
	order.PutUint32(msg[0:], object)
	order.PutUint32(msg[4:], uint32(opcode)|uint32(size)<<16)
	for _, a := range args {
		msg = append(msg, a...)
	}
	_, err := syscall.Write(c.fd, msg)
	return err
}

// next blocks until a whole event is buffered. File descriptors passed with
// SCM_RIGHTS are attached to events in arrival order.
func (c *conn) next() (event, error) {
	for {
		if len(c.buf) >= 8 {
			header := order.Uint32(c.buf[4:8])
			size := int(header >> 16)
			if size >= 8 && len(c.buf) >= size {
				ev := event{
					object:  order.Uint32(c.buf[0:4]),
					opcode:  uint16(header & 0xffff),
					payload: append([]byte(nil), c.buf[8:size]...),
					fd:      -1,
				}
				c.buf = c.buf[size:]
				if len(c.fds) > 0 {
					ev.fd, c.fds = c.fds[0], c.fds[1:]
				}
				return ev, nil
			}
		}

		data := make([]byte, 4096)
		oob := make([]byte, syscall.CmsgSpace(4*8))
		n, oobn, _, _, err := syscall.Recvmsg(c.fd, data, oob, 0)
		if err != nil {
			return event{}, err
		}
		if n == 0 {
			return event{}, errConnClosed
		}
		c.buf = append(c.buf, data[:n]...)
		c.fds = append(c.fds, parseRights(oob[:oobn])...)
	}
}

var errConnClosed = errors.New("wayland: connection closed")

func parseRights(oob []byte) []int {
	if len(oob) == 0 {
		return nil
	}
	msgs, err := syscall.ParseSocketControlMessage(oob)
	if err != nil {
		return nil
	}
	var fds []int
	for i := range msgs {
		rights, err := syscall.ParseUnixRights(&msgs[i])
		if err == nil {
			fds = append(fds, rights...)
		}
	}
	return fds
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

// str encodes a length-prefixed, NUL-terminated string padded to 4 bytes.
func str(s string) []byte {
	n := len(s) + 1
	b := make([]byte, 4+(n+3)&^3)
	order.PutUint32(b, uint32(n))
	copy(b[4:], s)
	return b
}

// readStr decodes a string argument and returns the remaining payload.
func readStr(p []byte) (string, []byte, error) {
	if len(p) < 4 {
		return "", p, fmt.Errorf("wayland: truncated string length")
	}
	n := int(order.Uint32(p))
	p = p[4:]
	if n == 0 {
		return "", p, nil
	}
	padded := (n + 3) &^ 3
	if len(p) < padded {
		return "", p, fmt.Errorf("wayland: truncated string")
	}
	return string(p[:n-1]), p[padded:], nil
}
