package protocol

// EventType is the result of one pass through the event selector.
type EventType int

const (
	NoEvent EventType = iota - 1
	FrameArrival
	ChecksumError
	Timeout
	SendReady
	AckTimeout
)

func (e EventType) String() string {
	switch e {
	case NoEvent:
		return "no_event"
	case FrameArrival:
		return "frame_arrival"
	case ChecksumError:
		return "cksum_err"
	case Timeout:
		return "timeout"
	case SendReady:
		return "send_ready"
	case AckTimeout:
		return "ack_timeout"
	default:
		return "invalid_event"
	}
}

// FrameQueue is the circular buffer of frames not yet dequeued, capacity
// 2*Window (§3). Unlike the reference implementation's byte-oriented ring,
// this queue stores decoded frames directly — the translation from raw
// bytes happens once, in Enqueue, since Go's PhysicalLayer.Recv already
// hands back whole-frame byte slices.
type FrameQueue struct {
	seq     SeqSpace
	pktSize int
	buf     []*Frame
	head    int // index of the oldest queued frame (outp)
	count   int // nframes
}

// NewFrameQueue creates an empty queue sized for the given sequence space
// and payload size.
func NewFrameQueue(seq SeqSpace, pktSize int) *FrameQueue {
	return &FrameQueue{
		seq:     seq,
		pktSize: pktSize,
		buf:     make([]*Frame, seq.QueueSize()),
	}
}

// Len reports how many decoded frames are currently queued.
func (q *FrameQueue) Len() int {
	return q.count
}

// Enqueue decodes each raw frame in raws and appends it to the ring. A
// malformed (wrong-length) raw frame is a protocol invariant violation: the
// physical layer guarantees whole-frame granularity, so this can only
// happen if the peers disagree on PktSize.
func (q *FrameQueue) Enqueue(raws [][]byte) error {
	for _, raw := range raws {
		if q.count == len(q.buf) {
			return ErrQueueOverflow
		}
		f, err := UnmarshalBinary(raw, q.pktSize)
		if err != nil {
			return err
		}
		tail := (q.head + q.count) % len(q.buf)
		q.buf[tail] = f
		q.count++
	}
	return nil
}

// Dequeue removes the oldest frame and classifies it into an EventType,
// per §4.3: bad-checksum DATA -> ChecksumError, good DATA or any
// ACK/NAK -> FrameArrival, anything else -> NoEvent (silently discarded).
func (q *FrameQueue) Dequeue() (*Frame, EventType) {
	if q.count == 0 {
		return nil, NoEvent
	}
	f := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--

	switch f.Kind {
	case KindDATA:
		if VerifyChecksum(f.Info, f.Checksum) != 0 {
			return f, ChecksumError
		}
		return f, FrameArrival
	case KindACK, KindNAK:
		return f, FrameArrival
	default:
		return f, NoEvent
	}
}
