package sync

// CollectionState tracks where one collection's live subscription is in its
// lifecycle.
type CollectionState int

const (
	// StateIdle: no identity, nothing subscribed.
	StateIdle CollectionState = iota
	// StateConnecting: opening the ordered subscription (may be retrying
	// while an index is provisioned).
	StateConnecting
	// StateLive: ordered subscription delivering snapshots.
	StateLive
	// StateConnectingFallback: ordered retries exhausted, opening the
	// unordered subscription.
	StateConnectingFallback
	// StateLiveFallback: unordered subscription delivering snapshots that
	// are sorted client-side.
	StateLiveFallback
	// StateFailed: subscription refused (e.g. permission denied); not
	// retried for the rest of the session.
	StateFailed
)

func (s CollectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateConnectingFallback:
		return "connecting_fallback"
	case StateLiveFallback:
		return "live_fallback"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
