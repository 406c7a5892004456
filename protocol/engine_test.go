package protocol

import (
	"context"
	"testing"
	"time"
)

// fakePhysical is a minimal in-memory PhysicalLayer double for exercising
// the event selector in isolation, without a real serial port.
type fakePhysical struct {
	now     int64
	inbox   [][]byte
	sent    [][]byte
	recvErr error
}

func (f *fakePhysical) Connect(Role) (bool, error) { return true, nil }

func (f *fakePhysical) Send(encoded []byte) error {
	f.sent = append(f.sent, append([]byte(nil), encoded...))
	return nil
}

func (f *fakePhysical) Recv(frameSize int) ([][]byte, error) {
	if f.recvErr != nil {
		return nil, f.recvErr
	}
	out := f.inbox
	f.inbox = nil
	return out, nil
}

func (f *fakePhysical) Tick() int64 { return f.now }

func (f *fakePhysical) Flush(time.Duration) error { return nil }

func (f *fakePhysical) Close() error { return nil }

func (f *fakePhysical) deliver(frames ...*Frame) {
	for _, fr := range frames {
		raw, _ := fr.MarshalBinary()
		f.inbox = append(f.inbox, raw)
	}
}

func TestEngineSendReadyWhenEnabledAndIdle(t *testing.T) {
	phys := &fakePhysical{}
	e := NewEngine(phys, DefaultSeqSpace(), 1, 100, nil, nil)
	e.Enable()

	event, err := e.WaitForEvent(context.Background())
	if err != nil {
		t.Fatalf("WaitForEvent: %v", err)
	}
	if event != SendReady {
		t.Fatalf("event = %v, want send_ready", event)
	}
}

func TestEnginePrioritizesAckTimeoutOverEverything(t *testing.T) {
	phys := &fakePhysical{now: 1000}
	e := NewEngine(phys, DefaultSeqSpace(), 1, 100, nil, nil)
	e.Enable()
	e.Timers().StartAckTimer(phys.now)
	phys.deliver(&Frame{Kind: KindACK, Seq: 0, Ack: 0, Info: []byte{0}})
	phys.now = 1100 // past timeoutInterval/2

	event, err := e.WaitForEvent(context.Background())
	if err != nil {
		t.Fatalf("WaitForEvent: %v", err)
	}
	if event != AckTimeout {
		t.Fatalf("event = %v, want ack_timeout (highest priority)", event)
	}
}

func TestEngineFrameArrivalBeatsSendReady(t *testing.T) {
	phys := &fakePhysical{}
	e := NewEngine(phys, DefaultSeqSpace(), 1, 100, nil, nil)
	e.Enable()
	phys.deliver(&Frame{Kind: KindACK, Seq: 0, Ack: 0, Info: []byte{0}})

	event, err := e.WaitForEvent(context.Background())
	if err != nil {
		t.Fatalf("WaitForEvent: %v", err)
	}
	if event != FrameArrival {
		t.Fatalf("event = %v, want frame_arrival", event)
	}
}

func TestEngineTimeoutOnlyWhenIdleAndDisabled(t *testing.T) {
	phys := &fakePhysical{now: 0}
	e := NewEngine(phys, DefaultSeqSpace(), 1, 100, nil, nil)
	e.Timers().StartTimer(phys.now, 2)
	phys.now = 200

	event, err := e.WaitForEvent(context.Background())
	if err != nil {
		t.Fatalf("WaitForEvent: %v", err)
	}
	if event != Timeout || e.OldestFrame() != 2 {
		t.Fatalf("event = %v oldest = %d, want timeout/2", event, e.OldestFrame())
	}
}

func TestEngineWaitForEventRespectsContextCancellation(t *testing.T) {
	phys := &fakePhysical{}
	e := NewEngine(phys, DefaultSeqSpace(), 1, 100, nil, nil)
	// disabled, nothing queued, no timers armed: would spin forever without cancellation.

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.WaitForEvent(ctx)
	if err == nil {
		t.Fatalf("expected context cancellation error, got nil")
	}
}

func TestEngineSendFrameStartsTimerForData(t *testing.T) {
	phys := &fakePhysical{now: 1000}
	e := NewEngine(phys, DefaultSeqSpace(), 1, 100, nil, nil)

	if err := e.SendFrame(KindDATA, 2, 0, []byte{42}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	active := e.Timers().ActiveSeqs()
	if len(active) != 1 || active[0] != 2 {
		t.Fatalf("ActiveSeqs() = %v, want [2]", active)
	}
	if len(phys.sent) != 1 {
		t.Fatalf("expected one frame transmitted, got %d", len(phys.sent))
	}
}

func TestEngineFromToApplicationLayerCursors(t *testing.T) {
	e := NewEngine(&fakePhysical{}, DefaultSeqSpace(), 2, 100, nil, nil)

	src := []byte{1, 2, 3, 4, 5, 6}
	p0 := e.FromApplicationLayer(src)
	p1 := e.FromApplicationLayer(src)

	if p0[0] != 1 || p0[1] != 2 || p1[0] != 3 || p1[1] != 4 {
		t.Fatalf("FromApplicationLayer slices = %v, %v, want [1 2], [3 4]", p0, p1)
	}

	dst := make([]byte, 6)
	e.ToApplicationLayer(dst, p0)
	e.ToApplicationLayer(dst, p1)
	for i := 0; i < 4; i++ {
		if dst[i] != src[i] {
			t.Fatalf("dst[%d] = %d, want %d", i, dst[i], src[i])
		}
	}
}
