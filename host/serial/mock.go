package serial

import (
	"math/rand"
	"sync"

	"github.com/pkg/errors"
)

// ErrInjectedFault is the sentinel a MockPort wraps with
// github.com/pkg/errors for a Read or Write on a closed port, and the cause
// InjectReadFailure uses when given nil. errors.Cause recovers it from the
// wrapped error.
var ErrInjectedFault = errors.New("serial: injected fault")

// FaultProfile configures a MockPort's simulated wire impairments. A zero
// value (no Rand) never drops or corrupts anything.
type FaultProfile struct {
	// DropRate is the probability, in [0,1], that a written frame never
	// reaches the peer (simulated frame loss); 1 drops every frame.
	DropRate float64
	// CorruptRate is the probability, in [0,1], that a written frame's
	// payload is flipped before delivery so the peer's checksum fails.
	CorruptRate float64
	// Rand drives the coin flips above. Nil disables fault injection
	// entirely, independent of the rates.
	Rand *rand.Rand
}

func (f FaultProfile) roll(rate float64) bool {
	return f.Rand != nil && rate > 0 && f.Rand.Float64() < rate
}

// MockPort is an in-memory Port: one side of a connected pair created by
// NewMockPortPair. It stands in for a real serial device in rdt.Session
// tests, including loss/corruption and forced read failures.
type MockPort struct {
	mu       sync.Mutex
	inbox    [][]byte
	peer     *MockPort
	profile  FaultProfile
	closed   bool
	forceErr error

	// Deterministic, one-shot overrides for scenario tests that need an
	// exact frame dropped or corrupted rather than a random roll.
	dropNext    int
	corruptNext int
}

// DropNextWrites marks the next n successful Write calls on this port to be
// silently discarded instead of delivered to the peer.
func (p *MockPort) DropNextWrites(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropNext = n
}

// CorruptNextWrites marks the next n successful Write calls on this port to
// have their payload flipped before delivery.
func (p *MockPort) CorruptNextWrites(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.corruptNext = n
}

// NewMockPortPair returns two ports wired to each other: a frame written to
// one (subject to the fault profile) becomes readable from the other.
func NewMockPortPair(profile FaultProfile) (a, b *MockPort) {
	a = &MockPort{profile: profile}
	b = &MockPort{profile: profile}
	a.peer = b
	b.peer = a
	return a, b
}

// InjectReadFailure makes the next Read on this port return cause wrapped
// with a "mock serial read" message; errors.Cause recovers cause. A nil
// cause uses ErrInjectedFault.
func (p *MockPort) InjectReadFailure(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cause == nil {
		cause = ErrInjectedFault
	}
	p.forceErr = errors.Wrap(cause, "mock serial read")
}

// Write delivers b to the peer's inbox as one frame, subject to the fault
// profile's drop/corrupt rolls.
func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	profile := p.profile
	peer := p.peer
	closed := p.closed
	drop := p.dropNext > 0
	if drop {
		p.dropNext--
	}
	corrupt := p.corruptNext > 0
	if corrupt {
		p.corruptNext--
	}
	p.mu.Unlock()

	if closed {
		return 0, errors.Wrap(ErrInjectedFault, "write to closed mock port")
	}
	if drop || profile.roll(profile.DropRate) {
		return len(b), nil
	}

	frame := append([]byte(nil), b...)
	if len(frame) > FrameInfoOffset && (corrupt || profile.roll(profile.CorruptRate)) {
		frame[FrameInfoOffset] ^= 0xFF
	}

	peer.mu.Lock()
	peer.inbox = append(peer.inbox, frame)
	peer.mu.Unlock()
	return len(b), nil
}

// Read pops the oldest queued frame into b, or returns (0, nil) when
// nothing is available yet, matching the non-blocking recv semantics §2
// describes for the physical channel.
func (p *MockPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.forceErr != nil {
		err := p.forceErr
		p.forceErr = nil
		return 0, err
	}
	if p.closed {
		return 0, errors.Wrap(ErrInjectedFault, "read from closed mock port")
	}
	if len(p.inbox) == 0 {
		return 0, nil
	}

	frame := p.inbox[0]
	p.inbox = p.inbox[1:]
	return copy(b, frame), nil
}

// Close marks the port closed; subsequent Read/Write fail.
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Flush discards any buffered, not-yet-read frames.
func (p *MockPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbox = nil
	return nil
}

// FrameInfoOffset is the byte offset of the payload within an encoded
// frame (kind, seq, ack precede it); corrupting here flips a payload byte
// without touching kind/seq/ack so a DATA frame still parses, just fails
// its checksum.
const FrameInfoOffset = 3
