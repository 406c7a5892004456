package protocol

import "time"

// Role identifies which side of the handshake a session plays.
type Role byte

const (
	// RoleSender reads the CONNECT sentinel written by the receiver.
	RoleSender Role = 's'
	// RoleReceiver writes the CONNECT sentinel once per attempt.
	RoleReceiver Role = 'r'
)

// ConnectSentinel is the single byte exchanged receiver->sender before a
// session starts (§6, source value 73).
const ConnectSentinel byte = 73

// PhysicalLayer is the external collaborator the engine depends on: a
// framed, non-blocking byte transport with a monotonic clock. Production
// code implements this over host/serial.Port; tests implement it over an
// in-memory lossy channel.
type PhysicalLayer interface {
	// Connect performs one attempt at the handshake for role. It returns
	// (true, nil) once the handshake completes, (false, nil) if the caller
	// should retry, and a non-nil error only on unrecoverable I/O failure.
	Connect(role Role) (bool, error)

	// Send transmits one whole encoded frame. Partial writes are an error.
	Send(encoded []byte) error

	// Recv drains whatever whole frames are currently available, appending
	// each frame's raw bytes to the returned slice. It never blocks. A nil
	// slice (no error) means no frames are available right now.
	Recv(frameSize int) ([][]byte, error)

	// Tick returns a monotonically increasing millisecond counter.
	Tick() int64

	// Flush discards buffered input for up to timeout.
	Flush(timeout time.Duration) error

	// Close releases the underlying channel.
	Close() error
}
