package staleness

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// EntityKey scopes a mutation and its staleness window to one contract on one
// ecosystem. Two keys are equal when both the ecosystem name and the contract
// address match.
type EntityKey struct {
	Ecosystem string
	Contract  common.Address
}

// NewEntityKey builds a key with a normalised (lowercase, trimmed) ecosystem
// name.
func NewEntityKey(ecosystem string, contract common.Address) EntityKey {
	return EntityKey{
		Ecosystem: strings.ToLower(strings.TrimSpace(ecosystem)),
		Contract:  contract,
	}
}

// String renders the key in the "ecosystem:0xaddress" form used in logs and
// metric labels.
func (k EntityKey) String() string {
	return k.Ecosystem + ":" + strings.ToLower(k.Contract.Hex())
}
