package serial

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMockPortPairDeliversFrames(t *testing.T) {
	a, b := NewMockPortPair(FaultProfile{})

	n, err := a.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	buf := make([]byte, 8)
	n, err = b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestMockPortReadEmptyReturnsZeroNil(t *testing.T) {
	a, _ := NewMockPortPair(FaultProfile{})
	buf := make([]byte, 4)
	n, err := a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestMockPortDropRateDiscardsFrames(t *testing.T) {
	profile := FaultProfile{DropRate: 1, Rand: rand.New(rand.NewSource(1))}
	a, b := NewMockPortPair(profile)

	_, err := a.Write([]byte{9, 9, 9})
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n, "dropped frame should never reach the peer")
}

func TestMockPortCorruptRateFlipsPayload(t *testing.T) {
	profile := FaultProfile{CorruptRate: 1, Rand: rand.New(rand.NewSource(1))}
	a, b := NewMockPortPair(profile)

	original := []byte{0xAA, 0xBB, 0xCC, 0x00, 0xDD}
	_, err := a.Write(original)
	require.NoError(t, err)

	buf := make([]byte, len(original))
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.NotEqual(t, original, buf[:n])
}

func TestMockPortInjectReadFailureIsRecoverableViaCause(t *testing.T) {
	a, _ := NewMockPortPair(FaultProfile{})
	sentinel := errors.New("simulated UART disconnect")
	a.InjectReadFailure(sentinel)

	_, err := a.Read(make([]byte, 4))
	require.Error(t, err)
	require.Equal(t, sentinel, errors.Cause(err))

	// The fault is one-shot: the next read behaves normally again.
	n, err := a.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMockPortClosedRejectsReadWrite(t *testing.T) {
	a, _ := NewMockPortPair(FaultProfile{})
	require.NoError(t, a.Close())

	_, err := a.Write([]byte{1})
	require.Error(t, err)

	_, err = a.Read(make([]byte, 1))
	require.Error(t, err)
}

func TestMockPortFlushDiscardsQueuedFrames(t *testing.T) {
	a, b := NewMockPortPair(FaultProfile{})
	_, err := a.Write([]byte{1, 2})
	require.NoError(t, err)

	require.NoError(t, b.Flush())

	n, err := b.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Zero(t, n)
}
