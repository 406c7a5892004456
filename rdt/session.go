// Package rdt implements the reliable data transfer layer on top of
// protocol.Engine: the Selective Repeat and Go-Back-N sliding-window state
// machines, session set-up, and the handshake/send/recv driver loops
// (§4.7-§4.9).
package rdt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/amken3d/serialrdt/protocol"
)

// Session drives one direction of one reliable transfer over a physical
// channel. A Session is not safe for concurrent Send/Recv calls (§5); build
// two sessions over two ports for an independent duplex pair.
type Session struct {
	ID   uuid.UUID
	Mode Mode

	// HandshakeAttempts bounds how many Connect attempts the handshake will
	// make before giving up with ErrHandshakeTimeout. Zero (the default)
	// matches the reference implementation's unbounded spin.
	HandshakeAttempts int

	seq     protocol.SeqSpace
	pktSize int

	engine  *protocol.Engine
	log     *logrus.Entry
	metrics *protocol.Metrics

	// Sliding-window bookkeeping, one instance shared by both the SR and
	// GBN step functions (§4.7, §4.8); GBN simply ignores the fields it
	// doesn't need (arrived, tooFar, notExpected, noNak).
	noNak       bool
	notExpected bool
	end         bool

	ackExpected     uint8
	nextFrameToSend uint8
	frameExpected   uint8
	tooFar          uint8

	outBuf  [][]byte
	inBuf   [][]byte
	arrived []bool
	nbuffered int

	nframes       int
	lastFrameRecv int
	lastFrameSend int
}

// NewSession builds a Session bound to physical, running mode over the
// given sequence space. log and metrics may be nil; sensible defaults are
// used so a session is always usable standalone (§9 — no package globals).
func NewSession(mode Mode, physical protocol.PhysicalLayer, seq protocol.SeqSpace, pktSize int, timeoutMS int64, log *logrus.Entry, metrics *protocol.Metrics) (*Session, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if metrics == nil {
		metrics = protocol.NewMetrics(nil)
	}

	id := uuid.New()
	log = log.WithFields(logrus.Fields{"session": id.String(), "mode": mode.String()})

	return &Session{
		ID:      id,
		Mode:    mode,
		seq:     seq,
		pktSize: pktSize,
		engine:  protocol.NewEngine(physical, seq, pktSize, timeoutMS, log, metrics),
		log:     log,
		metrics: metrics,
	}, nil
}

// setUp resets session state for a new transfer of payloadLen bytes (§4.9
// step 1, mirroring the reference set_up()).
func (s *Session) setUp(payloadLen int) {
	s.noNak = true
	s.end = false
	s.notExpected = false

	s.ackExpected = 0
	s.nextFrameToSend = 0
	s.frameExpected = 0
	s.tooFar = s.seq.Window

	s.nbuffered = 0

	w := int(s.seq.Window)
	s.outBuf = make([][]byte, w)
	s.inBuf = make([][]byte, w)
	s.arrived = make([]bool, w)
	for i := 0; i < w; i++ {
		s.outBuf[i] = make([]byte, s.pktSize)
		s.inBuf[i] = make([]byte, s.pktSize)
	}

	s.nframes = (payloadLen + s.pktSize - 1) / s.pktSize
	if s.nframes < 1 {
		s.nframes = 1
	}

	s.lastFrameRecv = 0
	s.lastFrameSend = 0
}

// sendFrame builds and transmits a frame out of buffer[frameNr mod W],
// clearing no_nak when the frame kind is NAK (§4.6). All other side effects
// (timer start/stop) live in protocol.Engine.SendFrame.
func (s *Session) sendFrame(fk protocol.Kind, frameNr uint8, buffer [][]byte) error {
	if fk == protocol.KindNAK {
		s.noNak = false
		s.metrics.NaksSent.Inc()
	}
	payload := buffer[s.seq.Slot(frameNr)]
	return s.engine.SendFrame(fk, frameNr, s.frameExpected, payload)
}

// handshake spins Connect until the role's side of the CONNECT handshake
// completes, or ctx is cancelled (§4.9, §5).
func (s *Session) handshake(ctx context.Context, role protocol.Role) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rdt: handshake cancelled: %w", err)
		}
		ok, err := s.engine.Connect(role)
		if err != nil {
			return fmt.Errorf("rdt: handshake: %w", err)
		}
		if ok {
			s.log.Info("handshake complete")
			return nil
		}
		if s.HandshakeAttempts > 0 && attempt >= s.HandshakeAttempts {
			return ErrHandshakeTimeout
		}
	}
}

// step runs one state-machine iteration for the session's mode.
func (s *Session) step(ctx context.Context, buf []byte) error {
	switch s.Mode {
	case ModeSelectiveRepeat:
		return s.stepSelectiveRepeat(ctx, buf)
	case ModeGoBackN:
		return s.stepGoBackN(ctx, buf)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, s.Mode)
	}
}

// Send transmits data end to end, returning once every byte has been
// acknowledged (§4.9). A zero timeout means no deadline beyond ctx.
func (s *Session) Send(ctx context.Context, data []byte, timeout time.Duration) error {
	if len(data) == 0 {
		return ErrEmptyPayload
	}

	s.setUp(len(data))
	s.engine.Enable()

	if err := s.handshake(ctx, protocol.RoleSender); err != nil {
		return err
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for !s.end {
		if err := s.step(runCtx, data); err != nil {
			return err
		}
		s.metrics.Buffered.Set(float64(s.nbuffered))
		if s.nbuffered < int(s.seq.Window) && s.lastFrameSend < s.nframes {
			s.engine.Enable()
		} else {
			s.engine.Disable()
		}
	}

	s.log.WithField("nframes", s.nframes).Info("send complete")
	return nil
}

// Recv receives data into buf, returning once every frame of the transfer
// has been delivered in order (§4.9).
func (s *Session) Recv(ctx context.Context, buf []byte, timeout time.Duration) error {
	if len(buf) == 0 {
		return ErrEmptyPayload
	}

	s.setUp(len(buf))
	s.engine.Disable()

	if err := s.handshake(ctx, protocol.RoleReceiver); err != nil {
		return err
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for !s.end {
		if err := s.step(runCtx, buf); err != nil {
			return err
		}
	}

	s.log.WithField("nframes", s.nframes).Info("recv complete")
	return nil
}

// Close releases the underlying physical channel.
func (s *Session) Close() error {
	return s.engine.Close()
}
