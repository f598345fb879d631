package types

import "math/big"

// MaxUint256 is the maximum representable ERC-20 amount. Approvals are set to
// this value so that a token pair never needs a second approval signature.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
