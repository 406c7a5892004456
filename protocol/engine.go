package protocol

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Engine is the protocol core a Session runs its Selective Repeat or
// Go-Back-N state machine on top of: the incoming frame queue, the timer
// table, the event selector, the checksum/between helpers (via SeqSpace),
// and the byte-cursor bookkeeping that slices the application buffer into
// fixed-size packets (§2).
type Engine struct {
	Seq     SeqSpace
	PktSize int

	physical PhysicalLayer
	queue    *FrameQueue
	timers   *TimerTable
	enabled  bool

	lastFrame   *Frame
	oldestFrame uint8

	nextPktFetch int // byte cursor into the send buffer
	lastPktGiven int // byte cursor into the recv buffer

	log     *logrus.Entry
	metrics *Metrics
}

// NewEngine constructs an Engine for one direction of one session.
func NewEngine(physical PhysicalLayer, seq SeqSpace, pktSize int, timeoutMS int64, log *logrus.Entry, metrics *Metrics) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{
		Seq:      seq,
		PktSize:  pktSize,
		physical: physical,
		queue:    NewFrameQueue(seq, pktSize),
		timers:   NewTimerTable(seq, timeoutMS),
		log:      log,
		metrics:  metrics,
	}
}

// Enable allows send_ready events to occur.
func (e *Engine) Enable() { e.enabled = true }

// Disable prevents send_ready events from occurring.
func (e *Engine) Disable() { e.enabled = false }

// Tick returns the physical layer's monotonic millisecond clock.
func (e *Engine) Tick() int64 { return e.physical.Tick() }

// Timers exposes the timer table for invariant checks and retransmission.
func (e *Engine) Timers() *TimerTable { return e.timers }

// LastFrame returns the most recently dequeued frame (valid after
// FrameArrival or ChecksumError).
func (e *Engine) LastFrame() *Frame { return e.lastFrame }

// OldestFrame returns the sequence number that timed out (valid after Timeout).
func (e *Engine) OldestFrame() uint8 { return e.oldestFrame }

// WaitForEvent spins until an event other than NoEvent is available,
// draining the physical layer into the queue on every iteration (§4.4).
func (e *Engine) WaitForEvent(ctx context.Context) (EventType, error) {
	e.timers.ResetOffset()

	for {
		if err := ctx.Err(); err != nil {
			return NoEvent, err
		}

		if err := e.drain(); err != nil {
			return NoEvent, err
		}

		event, err := e.pickEvent()
		if err != nil {
			return NoEvent, err
		}
		if event == NoEvent {
			continue
		}
		return event, nil
	}
}

func (e *Engine) drain() error {
	raws, err := e.physical.Recv(Size(e.PktSize))
	if err != nil {
		// Transient physical-layer read failures are logged and treated as
		// no-frames-available (§7); only a genuinely fatal Recv contract
		// violation propagates.
		e.log.WithError(err).Debug("physical layer read failed, treating as no frames")
		return nil
	}
	if len(raws) == 0 {
		return nil
	}
	if err := e.queue.Enqueue(raws); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocolInvariant, err)
	}
	return nil
}

// pickEvent implements the fixed priority order of §4.4:
// ack_timeout > frame_arrival/cksum_err > send_ready > timeout > no_event.
func (e *Engine) pickEvent() (EventType, error) {
	now := e.physical.Tick()

	if e.timers.CheckAckTimer(now) {
		return AckTimeout, nil
	}

	if e.queue.Len() > 0 {
		f, event := e.queue.Dequeue()
		e.lastFrame = f
		if event == ChecksumError {
			e.metrics.ChecksumErrors.Inc()
		}
		return event, nil
	}

	if e.enabled {
		return SendReady, nil
	}

	if seq, expired := e.timers.CheckTimers(now); expired {
		e.oldestFrame = seq
		return Timeout, nil
	}

	return NoEvent, nil
}

// FromApplicationLayer fetches the next PktSize bytes from data starting at
// the engine's send cursor, advancing the cursor.
func (e *Engine) FromApplicationLayer(data []byte) []byte {
	p := make([]byte, e.PktSize)
	copy(p, data[e.nextPktFetch:])
	e.nextPktFetch += e.PktSize
	return p
}

// ToApplicationLayer delivers one packet's payload into data at the
// engine's receive cursor, advancing the cursor.
func (e *Engine) ToApplicationLayer(data []byte, payload []byte) {
	n := copy(data[e.lastPktGiven:], payload)
	e.lastPktGiven += n
}

// SendFrame builds and transmits a frame of kind fk with sequence frameNr,
// acknowledging everything up to frameExpected's predecessor, carrying
// payload. It starts the retransmission timer for DATA frames and always
// cancels the deferred-ACK timer, per §4.6. NAK bookkeeping (no_nak) is the
// caller's (rdt state machine's) responsibility since it is SR-specific.
func (e *Engine) SendFrame(fk Kind, frameNr, frameExpected uint8, payload []byte) error {
	f := &Frame{
		Kind:     fk,
		Seq:      frameNr,
		Ack:      uint8((uint16(frameExpected) + uint16(e.Seq.MaxSeq)) % e.Seq.Modulus()),
		Info:     payload,
		Checksum: ComputeChecksum(payload),
	}

	encoded, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if err := e.physical.Send(encoded); err != nil {
		return fmt.Errorf("protocol: send frame: %w", err)
	}

	if fk == KindDATA {
		e.log.WithFields(logrus.Fields{"seq": f.Seq, "checksum": f.Checksum}).Debug("sent data frame")
		e.timers.StartTimer(e.physical.Tick(), frameNr)
		e.metrics.FramesSent.WithLabelValues("data").Inc()
	} else {
		e.log.WithFields(logrus.Fields{"kind": fk.String(), "ack": f.Ack}).Debug("sent control frame")
		e.metrics.FramesSent.WithLabelValues(fk.String()).Inc()
	}

	e.timers.StopAckTimer()
	return nil
}

// Connect drives one handshake attempt through the physical layer.
func (e *Engine) Connect(role Role) (bool, error) {
	return e.physical.Connect(role)
}

// Close releases the physical layer.
func (e *Engine) Close() error {
	return e.physical.Close()
}
