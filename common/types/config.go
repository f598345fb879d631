package types

// ChainConfig holds the per-chain configuration the engine needs.
//
// Fields:
// - Name: the name of the chain.
// - ChainID: the unique identifier for the chain.
// - RpcUrl: the URL for the chain's RPC endpoint.
// - TxType: the transaction type the chain expects (legacy or EIP-1559).
// - WaitNBlocks: the number of blocks to wait for transaction confirmation.
// - RouterAddress: the swap router contract address on this chain.
// - WrappedNative: the wrapped native token address, used as the intermediate
//   hop when no direct pool exists and to stand in for the native asset in
//   router paths.
type ChainConfig struct {
	Name          string `mapstructure:"name"`
	ChainID       uint64 `mapstructure:"chain_id"`
	RpcUrl        string `mapstructure:"rpc_url"`
	TxType        uint64 `mapstructure:"tx_type"`
	WaitNBlocks   uint64 `mapstructure:"wait_n_blocks"`
	RouterAddress string `mapstructure:"router_address"`
	WrappedNative string `mapstructure:"wrapped_native"`
}
