package protocol

import "math"

// noDeadline marks an inactive timer slot. The reference implementation
// uses 0 for "inactive" and 0xFFFF... for "no lowest timer"; a deadline is
// a tick plus a positive timeout, so it is never 0 and 0 still works as the
// sentinel.
const noDeadline int64 = 0

// lowestUnset is the recalc_timers() result when no timer is active.
const lowestUnset = int64(math.MaxInt64)

// TimerTable owns the per-sequence retransmission timers and the single
// ACK-delay timer (§4.5). It is not safe for concurrent use; a Session
// owns exactly one TimerTable per direction.
type TimerTable struct {
	seq SeqSpace

	ackTimer    []int64 // deadline per slot, 0 = inactive
	seqs        []uint8 // sequence number whose timer lives in slot i
	lowestTimer int64
	offset      int64 // tiebreak, reset at the top of each WaitForEvent cycle

	auxTimer int64 // deferred-ACK deadline, 0 = inactive

	timeoutInterval int64 // milliseconds
}

// NewTimerTable builds an empty timer table for the given sequence space
// and retransmission timeout.
func NewTimerTable(seq SeqSpace, timeoutMS int64) *TimerTable {
	t := &TimerTable{
		seq:             seq,
		ackTimer:        make([]int64, seq.Window),
		seqs:            make([]uint8, seq.Window),
		timeoutInterval: timeoutMS,
	}
	t.lowestTimer = lowestUnset
	return t
}

// ResetOffset is called at the top of every WaitForEvent cycle so ordering
// tiebreaks are per-cycle rather than global, per §4.4.
func (t *TimerTable) ResetOffset() {
	t.offset = 0
}

// StartTimer arms the retransmission timer for seq.
func (t *TimerTable) StartTimer(now int64, seq uint8) {
	slot := t.seq.Slot(seq)
	t.ackTimer[slot] = now + t.timeoutInterval + t.offset
	t.seqs[slot] = seq
	t.offset++
	t.recalc()
}

// StopTimer disarms the retransmission timer for seq.
func (t *TimerTable) StopTimer(seq uint8) {
	t.ackTimer[t.seq.Slot(seq)] = noDeadline
	t.recalc()
}

// StartAckTimer arms the deferred-ACK timer at timeoutInterval/2.
func (t *TimerTable) StartAckTimer(now int64) {
	t.auxTimer = now + t.timeoutInterval/2
	t.offset++
}

// StopAckTimer disarms the deferred-ACK timer.
func (t *TimerTable) StopAckTimer() {
	t.auxTimer = 0
}

// CheckTimers reports whether the lowest-deadline retransmission timer has
// expired. On expiry it disarms that timer and returns the sequence number
// that timed out (oldest_frame) and true.
func (t *TimerTable) CheckTimers(now int64) (oldestFrame uint8, expired bool) {
	if t.lowestTimer == lowestUnset || now < t.lowestTimer {
		return 0, false
	}
	for i, deadline := range t.ackTimer {
		if deadline == t.lowestTimer {
			t.ackTimer[i] = noDeadline
			t.recalc()
			return t.seqs[i], true
		}
	}
	// Every active deadline is unique within a cycle (offset tiebreak), so
	// this is unreachable unless lowestTimer is stale relative to ackTimer.
	return 0, false
}

// CheckAckTimer reports whether the deferred-ACK timer has expired,
// disarming it if so.
func (t *TimerTable) CheckAckTimer(now int64) bool {
	if t.auxTimer > 0 && now >= t.auxTimer {
		t.auxTimer = 0
		return true
	}
	return false
}

func (t *TimerTable) recalc() {
	lowest := lowestUnset
	for _, deadline := range t.ackTimer {
		if deadline > 0 && deadline < lowest {
			lowest = deadline
		}
	}
	t.lowestTimer = lowest
}

// LowestTimer exposes the cached minimum deadline, for invariant testing.
func (t *TimerTable) LowestTimer() int64 {
	return t.lowestTimer
}

// ActiveSeqs returns the sequence numbers with a currently-armed
// retransmission timer, for invariant testing.
func (t *TimerTable) ActiveSeqs() []uint8 {
	var out []uint8
	for i, deadline := range t.ackTimer {
		if deadline > 0 {
			out = append(out, t.seqs[i])
		}
	}
	return out
}
