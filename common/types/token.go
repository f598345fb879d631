package types

// ZeroAddress is the conventional address of the chain's native asset.
// Token fields holding this value (or the empty string) refer to the
// native asset rather than an ERC-20 contract.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// TokenInfo describes a token configured for a specific chain.
//
// Fields:
// - Symbol: the display symbol of the token (e.g. "USDC").
// - ContractAddress: the token contract address, or ZeroAddress for the native asset.
// - Decimals: the number of decimals the token uses.
// - ChainID: the unique identifier of the chain the token lives on.
type TokenInfo struct {
	Symbol          string
	ContractAddress string
	Decimals        uint8
	ChainID         uint64
}

// IsNative reports whether the token is the chain's native asset.
func (t TokenInfo) IsNative() bool {
	return t.ContractAddress == "" || t.ContractAddress == ZeroAddress
}
