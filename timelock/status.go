// Package timelock models the observed admin state of a watched contract:
// the current configuration plus any scheduled changes the refetch layer can
// count down to.
package timelock

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PendingDelayChange is a scheduled change of the contract's execution delay.
type PendingDelayChange struct {
	NewDelay time.Duration
	EffectAt time.Time
}

// PendingAdminTransfer is a proposed handover of the admin role. Contracts
// that schedule by wall clock carry an expiration timestamp; block-number
// schedulers leave Expiration zero and set EffectBlock instead.
type PendingAdminTransfer struct {
	NewAdmin    common.Address
	Expiration  time.Time
	EffectBlock uint64
}

// Status is one contract's admin snapshot as read from the ledger.
type Status struct {
	Admin common.Address
	Delay time.Duration

	// TimestampSchedule reports whether this contract's admin model uses
	// timestamps rather than block numbers. Block-number-only pending states
	// have no wall-clock effect time and cannot be counted down to.
	TimestampSchedule bool

	PendingDelay *PendingDelayChange
	PendingAdmin *PendingAdminTransfer
}

// HasPending reports whether any scheduled change is outstanding.
func (s *Status) HasPending() bool {
	if s == nil {
		return false
	}
	return s.PendingDelay != nil || s.PendingAdmin != nil
}
