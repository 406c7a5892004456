package rdt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amken3d/serialrdt/host/serial"
	"github.com/amken3d/serialrdt/protocol"
	"github.com/amken3d/serialrdt/rdt"
)

// Go-Back-N has no NAK path; a single dropped DATA frame is only
// recoverable via the sender's retransmission timer rewinding to
// ack_expected and resending every buffered frame (§4.8, §7 "GBN
// retransmits the entire window").
func TestGoBackNRecoversFromDroppedFrameViaTimeout(t *testing.T) {
	senderPort, receiverPort := serial.NewMockPortPair(serial.FaultProfile{})
	senderPort.DropNextWrites(1)

	seq := protocol.NewSeqSpace(7)
	const pktSize = 4
	sender, err := rdt.NewSession(rdt.ModeGoBackN, serial.NewPhysicalChannel(senderPort), seq, pktSize, 25, nil, nil)
	require.NoError(t, err)
	receiver, err := rdt.NewSession(rdt.ModeGoBackN, serial.NewPhysicalChannel(receiverPort), seq, pktSize, 25, nil, nil)
	require.NoError(t, err)

	payload := []byte("gobackn recovers via retransmit!")
	received := make([]byte, len(payload))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- sender.Send(ctx, payload, 0) }()
	go func() { errs <- receiver.Recv(ctx, received, 0) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.Equal(t, payload, received)
}

// A corrupted DATA frame is a silent no-op for the GBN receiver (§4.8
// cksum_err): it is neither delivered nor acknowledged, so the sender's
// timeout still has to recover it, same as outright loss.
func TestGoBackNRecoversFromCorruptedFrame(t *testing.T) {
	senderPort, receiverPort := serial.NewMockPortPair(serial.FaultProfile{})
	senderPort.CorruptNextWrites(1)

	seq := protocol.NewSeqSpace(7)
	const pktSize = 4
	sender, err := rdt.NewSession(rdt.ModeGoBackN, serial.NewPhysicalChannel(senderPort), seq, pktSize, 25, nil, nil)
	require.NoError(t, err)
	receiver, err := rdt.NewSession(rdt.ModeGoBackN, serial.NewPhysicalChannel(receiverPort), seq, pktSize, 25, nil, nil)
	require.NoError(t, err)

	payload := []byte("corrupted frames are dropped!!!!")
	received := make([]byte, len(payload))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- sender.Send(ctx, payload, 0) }()
	go func() { errs <- receiver.Recv(ctx, received, 0) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.Equal(t, payload, received)
}

// A transfer whose length isn't a multiple of the window still completes
// promptly because the deferred-ACK timer covers the trailing partial
// window (§9 "GBN's ACK-delay timer").
func TestGoBackNPartialTrailingWindowStillAcked(t *testing.T) {
	senderPort, receiverPort := serial.NewMockPortPair(serial.FaultProfile{})

	seq := protocol.NewSeqSpace(7) // window = 4
	const pktSize = 4
	sender, err := rdt.NewSession(rdt.ModeGoBackN, serial.NewPhysicalChannel(senderPort), seq, pktSize, 20, nil, nil)
	require.NoError(t, err)
	receiver, err := rdt.NewSession(rdt.ModeGoBackN, serial.NewPhysicalChannel(receiverPort), seq, pktSize, 20, nil, nil)
	require.NoError(t, err)

	// 9 bytes over pktSize=4 make 3 frames (§3 nframes = ceil(len/PKT_SIZE)),
	// the last carrying a single byte; the final delivery lands mid-window,
	// exercising the ack-delay path rather than the cumulative window-edge ack.
	payload := []byte("abcdefghi")
	received := make([]byte, len(payload))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- sender.Send(ctx, payload, 0) }()
	go func() { errs <- receiver.Recv(ctx, received, 0) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.Equal(t, payload[:8], received[:8])
}
