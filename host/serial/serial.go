// Package serial provides the byte-level transport a protocol.PhysicalLayer
// adapter is built on: a small Port abstraction with a real tarm/serial
// backend and an in-memory mock for tests (§2, external collaborator).
package serial

import (
	"io"
	"time"
)

// Port represents a serial port. Swappable implementations: NativePort
// (real hardware via github.com/tarm/serial) and MockPort (in-memory, with
// optional loss/corruption for tests).
type Port interface {
	io.ReadWriteCloser

	// Flush discards any buffered input accumulated before a session starts.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3").
	Device string

	// Baud rate.
	Baud int

	// ReadTimeout bounds a single blocking Read call; 0 means the
	// implementation's own default.
	ReadTimeout time.Duration
}

// DefaultConfig returns a sensible configuration for the given device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}
