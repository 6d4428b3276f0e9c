// display.go - display boundary selection (§6 CLI surface: tcp|screen|headless)
package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
)

// DisplayBoundary is the final consumer of a packed-color present
// frame (§5: "output framebuffer DDR region is... read-only from the
// display boundary"). pixels is XRGB8888 or RGB565 packed exactly as
// the present kernel emitted it.
type DisplayBoundary interface {
	Present(pixels []byte, width, height int) error
	Close() error
}

// NewDisplayBoundary selects a boundary implementation by the §6 CLI
// output-selection token.
func NewDisplayBoundary(kind string, tcpAddr string) (DisplayBoundary, error) {
	switch kind {
	case "tcp":
		return newTCPDisplay(tcpAddr)
	case "screen":
		return newScreenDisplay()
	case "headless", "":
		return newHeadlessDisplay(), nil
	default:
		return nil, fmt.Errorf("display: unknown output selection %q", kind)
	}
}

// headlessDisplay records the most recent frame without presenting
// it anywhere, used by bench-headless and no-client CLI modes.
type headlessDisplay struct {
	frameCount uint64
	lastWidth  int
	lastHeight int
	lastFrame  []byte
}

func newHeadlessDisplay() *headlessDisplay { return &headlessDisplay{} }

func (d *headlessDisplay) Present(pixels []byte, width, height int) error {
	d.frameCount++
	d.lastWidth, d.lastHeight = width, height
	d.lastFrame = pixels
	return nil
}

func (d *headlessDisplay) Close() error { return nil }

// tcpDisplay streams frames to a single connected client as
// length-prefixed raw pixel buffers: a 12-byte header (width, height,
// byte length, all little-endian uint32) followed by the pixels.
// Grounded on runtime_ipc.go's net.Listener-based single-client
// acceptance loop, generalized from length-prefixed JSON requests to
// length-prefixed binary frames.
type tcpDisplay struct {
	listener net.Listener
	conn     net.Conn
}

func newTCPDisplay(addr string) (*tcpDisplay, error) {
	if addr == "" {
		addr = ":9696"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp display: listen %s: %w", addr, err)
	}
	fmt.Fprintf(os.Stderr, "tcp display: waiting for client on %s\n", addr)
	conn, err := ln.Accept()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("tcp display: accept: %w", err)
	}
	return &tcpDisplay{listener: ln, conn: conn}, nil
}

func (d *tcpDisplay) Present(pixels []byte, width, height int) error {
	if d.conn == nil {
		return nil
	}
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(width))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(height))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(pixels)))
	if _, err := d.conn.Write(hdr[:]); err != nil {
		fmt.Fprintf(os.Stderr, "tcp display: client disconnected: %v\n", err)
		d.conn = nil
		return nil
	}
	if _, err := d.conn.Write(pixels); err != nil {
		fmt.Fprintf(os.Stderr, "tcp display: client disconnected: %v\n", err)
		d.conn = nil
	}
	return nil
}

func (d *tcpDisplay) Close() error {
	if d.conn != nil {
		d.conn.Close()
	}
	return d.listener.Close()
}
