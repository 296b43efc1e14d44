// Package bridge implements the address aliasing and fee arithmetic used
// for L1 to L2 retryable tickets.
package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AliasOffset is added to an L1 contract address to form its L2 sender.
var AliasOffset = common.HexToAddress("0x1111000000000000000000000000000000001111")

var addressSpace = new(big.Int).Lsh(big.NewInt(1), common.AddressLength*8)

// ApplyL1ToL2Alias returns the address an L1 contract appears as on L2.
func ApplyL1ToL2Alias(l1 common.Address) common.Address {
	sum := new(big.Int).Add(l1.Big(), AliasOffset.Big())
	return common.BigToAddress(sum.Mod(sum, addressSpace))
}

// UndoL1ToL2Alias recovers the L1 address from an aliased L2 sender.
func UndoL1ToL2Alias(l2 common.Address) common.Address {
	diff := new(big.Int).Sub(l2.Big(), AliasOffset.Big())
	return common.BigToAddress(diff.Mod(diff, addressSpace))
}
