// Package protocol implements the sliding-window frame engine for a
// reliable byte transport over a framed serial link: the wire frame format,
// the checksum, modular sequence-number arithmetic, the incoming frame
// queue, and the timer-driven event selector that the rdt package's
// Selective Repeat and Go-Back-N state machines run on top of.
package protocol

import "fmt"

// Kind identifies the role a Frame plays on the wire.
type Kind uint8

const (
	// KindACK acknowledges everything up to and including the frame's Ack field.
	KindACK Kind = 1
	// KindNAK requests retransmission of the frame expected at the receiver.
	KindNAK Kind = 2
	// KindDATA carries one packet of application payload.
	KindDATA Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindACK:
		return "ack"
	case KindNAK:
		return "nak"
	case KindDATA:
		return "data"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// FrameHeaderSize is the number of fixed fields surrounding the payload:
// kind, seq, ack, checksum.
const FrameHeaderSize = 4

// Frame is the wire record exchanged between peers. Its layout is fixed
// size and unpadded: Kind, Seq, Ack, Info (PktSize bytes), Checksum.
type Frame struct {
	Kind     Kind
	Seq      uint8
	Ack      uint8
	Info     []byte
	Checksum uint8
}

// Size returns the on-wire size of a frame carrying a payload of pktSize bytes.
func Size(pktSize int) int {
	return FrameHeaderSize + pktSize
}

// MarshalBinary encodes the frame using exactly len(f.Info) payload bytes.
func (f *Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, FrameHeaderSize+len(f.Info))
	buf = append(buf, byte(f.Kind), f.Seq, f.Ack)
	buf = append(buf, f.Info...)
	buf = append(buf, f.Checksum)
	return buf, nil
}

// UnmarshalBinary decodes a frame of exactly Size(pktSize) bytes.
func UnmarshalBinary(data []byte, pktSize int) (*Frame, error) {
	want := Size(pktSize)
	if len(data) != want {
		return nil, fmt.Errorf("protocol: malformed frame: got %d bytes, want %d", len(data), want)
	}
	info := make([]byte, pktSize)
	copy(info, data[3:3+pktSize])
	return &Frame{
		Kind:     Kind(data[0]),
		Seq:      data[1],
		Ack:      data[2],
		Info:     info,
		Checksum: data[3+pktSize],
	}, nil
}

// ComputeChecksum returns the single-byte two's-complement sum of data, per
// §4.2: (~Σ data_i + 1) mod 256.
func ComputeChecksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

// VerifyChecksum recomputes Σ data_i + checksum; a valid frame has residue 0.
func VerifyChecksum(data []byte, checksum uint8) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum + checksum
}
