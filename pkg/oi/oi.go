// Package oi speaks the iRobot Open Interface: fixed-layout command
// frames written to the base over a serial link.
//
// Writes are best-effort by design. A failed write means the motion or
// chime for that frame is lost; callers log a warning and carry on
// rather than retrying, so a flaky UART can never wedge the control
// loop.
package oi

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Open Interface opcodes used by this controller.
const (
	OpStart byte = 128
	OpSafe  byte = 131
	OpFull  byte = 132
	OpDrive byte = 137
	OpSong  byte = 140
	OpPlay  byte = 141
)

// Conn is a connection to the base. Safe for use from multiple
// goroutines; frames are written atomically.
type Conn struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// Open dials the base over a serial port at the given baud rate
// (115200 for Create-era bases).
func Open(port string, baud int) (*Conn, error) {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", port, err)
	}
	return &Conn{w: p, c: p}, nil
}

// NewConn wraps an arbitrary writer as a base connection. Used by
// tests and by transports other than a local UART.
func NewConn(w io.Writer) *Conn {
	c := &Conn{w: w}
	if cl, ok := w.(io.Closer); ok {
		c.c = cl
	}
	return c
}

// Send writes one command frame: the opcode followed by its data bytes.
func (c *Conn) Send(opcode byte, data ...byte) error {
	frame := make([]byte, 0, 1+len(data))
	frame = append(frame, opcode)
	frame = append(frame, data...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(frame); err != nil {
		return fmt.Errorf("write opcode %d: %w", opcode, err)
	}
	return nil
}

// Wake brings the base out of standby and into Safe mode, then plays a
// short beep to confirm the link. Full mode is deliberately not used:
// it disables cliff and wheel-drop protection.
func (c *Conn) Wake() error {
	if err := c.Send(OpStart); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := c.Send(OpSafe); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := c.DefineSong(SongBoot, bootBeep); err != nil {
		return err
	}
	return c.PlaySong(SongBoot)
}

// Close releases the underlying transport, if it is closable.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}
