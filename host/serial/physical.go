package serial

import (
	"fmt"
	"time"

	"github.com/amken3d/serialrdt/protocol"
)

// PhysicalChannel adapts a Port into a protocol.PhysicalLayer: it owns the
// CONNECT handshake, the monotonic tick source, and the byte-to-frame
// stitching that lets a physical Read return partial frame fragments while
// the channel still only ever hands the engine whole frames (§2).
type PhysicalChannel struct {
	port      Port
	startedAt time.Time
	leftover  []byte
}

// NewPhysicalChannel wraps port as a PhysicalLayer.
func NewPhysicalChannel(port Port) *PhysicalChannel {
	return &PhysicalChannel{
		port:      port,
		startedAt: time.Now(),
	}
}

// Connect drives one handshake attempt: the sender tries to read the
// CONNECT sentinel, the receiver writes it once (§4.9, §6).
func (c *PhysicalChannel) Connect(role protocol.Role) (bool, error) {
	switch role {
	case protocol.RoleSender:
		buf := make([]byte, 1)
		n, err := c.port.Read(buf)
		if err != nil {
			return false, fmt.Errorf("serial: connect read: %w", err)
		}
		if n > 0 && buf[0] == protocol.ConnectSentinel {
			return true, nil
		}
		return false, nil

	case protocol.RoleReceiver:
		n, err := c.port.Write([]byte{protocol.ConnectSentinel})
		if err != nil {
			return false, fmt.Errorf("serial: connect write: %w", err)
		}
		return n > 0, nil

	default:
		return false, fmt.Errorf("serial: unknown role %q", role)
	}
}

// Send writes one already-encoded frame to the wire.
func (c *PhysicalChannel) Send(encoded []byte) error {
	_, err := c.port.Write(encoded)
	if err != nil {
		return fmt.Errorf("serial: send: %w", err)
	}
	return nil
}

// Recv drains whatever bytes are currently available, stitches them onto
// any fragment left over from the previous call, and returns every
// complete frameSize-byte frame it can assemble. A short, non-blocking
// read that yields no whole frame is not an error (§2, §4.3).
func (c *PhysicalChannel) Recv(frameSize int) ([][]byte, error) {
	buf := make([]byte, frameSize)
	for {
		n, err := c.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("serial: recv: %w", err)
		}
		if n == 0 {
			break
		}
		c.leftover = append(c.leftover, buf[:n]...)
	}

	var frames [][]byte
	for len(c.leftover) >= frameSize {
		frames = append(frames, append([]byte(nil), c.leftover[:frameSize]...))
		c.leftover = c.leftover[frameSize:]
	}
	return frames, nil
}

// Tick returns milliseconds elapsed since the channel was constructed, a
// monotonic counter independent of wall-clock adjustments (time.Since uses
// the runtime's monotonic reading).
func (c *PhysicalChannel) Tick() int64 {
	return time.Since(c.startedAt).Milliseconds()
}

// Flush waits out timeout, then discards whatever accumulated in the
// meantime, mirroring the reference implementation's boot-settle flush.
func (c *PhysicalChannel) Flush(timeout time.Duration) error {
	time.Sleep(timeout)
	c.leftover = nil
	return c.port.Flush()
}

// Close releases the underlying port.
func (c *PhysicalChannel) Close() error {
	return c.port.Close()
}
