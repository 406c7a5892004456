package rdt

import (
	"context"

	"github.com/amken3d/serialrdt/protocol"
)

// stepSelectiveRepeat runs one Selective Repeat iteration: wait for the next
// event and react to it per §4.7. Out-of-order frames are buffered
// (arrived[]); at most one NAK is outstanding at a time (no_nak); a
// cumulative ACK range advances the sender's window on every arrival.
func (s *Session) stepSelectiveRepeat(ctx context.Context, buf []byte) error {
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

		if r.Kind == protocol.KindDATA {
			if r.Seq != s.frameExpected {
				if s.noNak {
					s.notExpected = true
					if err := s.sendFrame(protocol.KindNAK, 0, s.outBuf); err != nil {
						return err
					}
				}
			} else {
				s.notExpected = false
				s.engine.Timers().StartAckTimer(s.engine.Tick())
			}

			// Frames may be accepted in any order within the receive window.
			if s.seq.Between(s.frameExpected, r.Seq, s.tooFar) && !s.arrived[s.seq.Slot(r.Seq)] {
				s.arrived[s.seq.Slot(r.Seq)] = true
				s.inBuf[s.seq.Slot(r.Seq)] = r.Info

				for s.arrived[s.seq.Slot(s.frameExpected)] {
					s.engine.ToApplicationLayer(buf, s.inBuf[s.seq.Slot(s.frameExpected)])
					s.noNak = true
					s.arrived[s.seq.Slot(s.frameExpected)] = false
					s.frameExpected = s.seq.Inc(s.frameExpected)
					s.tooFar = s.seq.Inc(s.tooFar)
					s.lastFrameRecv++
					s.engine.Timers().StartAckTimer(s.engine.Tick())
				}
			}
		}

		if r.Kind == protocol.KindNAK && s.seq.Between(s.ackExpected, s.seq.Inc(r.Ack), s.nextFrameToSend) {
			if err := s.sendFrame(protocol.KindDATA, s.seq.Inc(r.Ack), s.outBuf); err != nil {
				return err
			}
			s.metrics.Retransmits.Inc()
		}

		for s.seq.Between(s.ackExpected, r.Ack, s.nextFrameToSend) {
			s.nbuffered--
			s.engine.Timers().StopTimer(s.ackExpected)
			s.ackExpected = s.seq.Inc(s.ackExpected)
			s.lastFrameRecv++
		}

		if r.Kind == protocol.KindDATA && s.notExpected {
			if s.lastFrameRecv > 0 && s.lastFrameRecv == s.nframes {
				s.end = true
			}
		} else if r.Kind == protocol.KindACK || r.Kind == protocol.KindNAK {
			if s.lastFrameRecv > 0 && s.lastFrameRecv == s.nframes {
				s.end = true
			}
		}

	case protocol.Timeout:
		if err := s.sendFrame(protocol.KindDATA, s.engine.OldestFrame(), s.outBuf); err != nil {
			return err
		}
		s.metrics.Retransmits.Inc()

	case protocol.ChecksumError:
		if s.noNak {
			if err := s.sendFrame(protocol.KindNAK, 0, s.outBuf); err != nil {
				return err
			}
			if s.lastFrameRecv > 0 && s.lastFrameRecv == s.nframes {
				s.end = true
			}
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
