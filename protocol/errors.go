package protocol

import "errors"

// ErrQueueOverflow is returned when the physical layer hands back more
// whole frames than the incoming queue has room for — an invariant
// violation per SPEC_FULL.md §7, since the queue is sized 2*Window and the
// event loop drains it every cycle.
var ErrQueueOverflow = errors.New("protocol: frame queue overflow")

// ErrProtocolInvariant wraps any other condition the engine treats as
// fatal rather than locally recoverable (§7).
var ErrProtocolInvariant = errors.New("protocol: invariant violation")
