// Package ledger defines the read-side adapter surface the engine consumes:
// the current head of a chain and the network it belongs to. Implementations
// bind one configured network each.
package ledger

import (
	"context"
	"time"
)

// Head is the latest observed block of a chain.
type Head struct {
	Number uint64
	Time   time.Time
}

// Adapter reads one ledger. Implementations must be safe for concurrent use.
type Adapter interface {
	// NetworkID identifies the chain this adapter is bound to.
	NetworkID() uint64
	// Head returns the current block number and its production timestamp.
	Head(ctx context.Context) (Head, error)
}

// Wallet is the connected signing side of a session. Only chain families
// that support in-place switching implement SwitchChain meaningfully.
type Wallet interface {
	// SwitchChain asks the wallet to move its active chain to networkID.
	SwitchChain(ctx context.Context, networkID uint64) error
}
