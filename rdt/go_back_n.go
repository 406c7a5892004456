package rdt

import (
	"context"

	"github.com/amken3d/serialrdt/protocol"
)

// stepGoBackN runs one Go-Back-N iteration (§4.8). The receiver accepts
// strictly in order and discards anything else; a cumulative ACK is sent
// whenever the delivered pointer reaches the end of a window. Timeout
// rewinds the sender to ack_expected and retransmits every buffered frame.
func (s *Session) stepGoBackN(ctx context.Context, buf []byte) error {
	event, err := s.engine.WaitForEvent(ctx)
	if err != nil {
		return err
	}

	switch event {

	case protocol.SendReady:
		s.nbuffered++
		pkt := s.engine.FromApplicationLayer(buf)
		s.outBuf[s.seq.Slot(s.nextFrameToSend)] = pkt
		if err := s.sendFrame(protocol.KindDATA, s.nextFrameToSend, s.outBuf); err != nil {
			return err
		}
		s.nextFrameToSend = s.seq.Inc(s.nextFrameToSend)
		s.lastFrameSend++

	case protocol.FrameArrival:
		r := s.engine.LastFrame()
		acked := false

		if r.Kind == protocol.KindDATA && r.Seq == s.frameExpected {
			s.inBuf[s.seq.Slot(r.Seq)] = r.Info
			s.engine.ToApplicationLayer(buf, s.inBuf[s.seq.Slot(s.frameExpected)])
			s.frameExpected = s.seq.Inc(s.frameExpected)
			s.lastFrameRecv++
			// Armed on every delivery, same as Selective Repeat, so a
			// transfer whose length isn't a multiple of the window still
			// gets a timely ack for its final, partial window.
			s.engine.Timers().StartAckTimer(s.engine.Tick())

			if s.seq.Slot(r.Seq) == s.seq.Window-1 {
				if err := s.sendFrame(protocol.KindACK, 0, s.outBuf); err != nil {
					return err
				}
				acked = true
			}
		}

		// Ack n implies n-1, n-2, etc: contract the sender's window for
		// every frame the cumulative ack covers.
		for s.seq.Between(s.ackExpected, r.Ack, s.nextFrameToSend) {
			s.nbuffered--
			s.engine.Timers().StopTimer(s.ackExpected)
			s.ackExpected = s.seq.Inc(s.ackExpected)
			s.lastFrameRecv++
		}

		// A receiver ends here only if this delivery already sent the
		// window-edge ACK; otherwise the ack_timeout arm sends it and ends.
		if s.lastFrameRecv > 0 && s.lastFrameRecv == s.nframes && (r.Kind != protocol.KindDATA || acked) {
			s.end = true
		}

	case protocol.ChecksumError:
		// Corrupted frames are silently dropped; the sender's timeout will
		// cover it.

	case protocol.Timeout:
		s.nextFrameToSend = s.ackExpected
		for i := 0; i < s.nbuffered; i++ {
			if err := s.sendFrame(protocol.KindDATA, s.nextFrameToSend, s.outBuf); err != nil {
				return err
			}
			s.metrics.Retransmits.Inc()
			s.nextFrameToSend = s.seq.Inc(s.nextFrameToSend)
		}

	case protocol.AckTimeout:
		if err := s.sendFrame(protocol.KindACK, 0, s.outBuf); err != nil {
			return err
		}
		if s.lastFrameRecv > 0 && s.lastFrameRecv == s.nframes {
			s.end = true
		}
	}

	return nil
}
