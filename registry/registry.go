package registry

import (
	"strings"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/samber/lo"
)

type tokenKey struct {
	symbol  string
	chainID uint64
}

type addressKey struct {
	address string
	chainID uint64
}

// TokenRegistry is a read-only lookup of tokens configured per chain. It is
// loaded once at startup and immutable afterwards. A miss means the feature
// is unavailable for that chain, not an error.
type TokenRegistry struct {
	bySymbol  map[tokenKey]types.TokenInfo
	byAddress map[addressKey]types.TokenInfo
	tokens    []types.TokenInfo
}

// NewTokenRegistry creates a registry from the configured token list.
//
// Parameters:
// - tokens: the static token configuration loaded at startup.
//
// Returns:
// - *TokenRegistry: the populated registry.
func NewTokenRegistry(tokens []types.TokenInfo) *TokenRegistry {
	r := &TokenRegistry{
		bySymbol:  make(map[tokenKey]types.TokenInfo, len(tokens)),
		byAddress: make(map[addressKey]types.TokenInfo, len(tokens)),
		tokens:    make([]types.TokenInfo, len(tokens)),
	}
	copy(r.tokens, tokens)

	for _, token := range tokens {
		r.bySymbol[tokenKey{symbol: strings.ToUpper(token.Symbol), chainID: token.ChainID}] = token
		r.byAddress[addressKey{address: strings.ToLower(token.ContractAddress), chainID: token.ChainID}] = token
	}

	return r
}

// Lookup returns the token configured under the given symbol on the given
// chain. The second return value reports whether the token is configured.
func (r *TokenRegistry) Lookup(symbol string, chainID uint64) (types.TokenInfo, bool) {
	token, ok := r.bySymbol[tokenKey{symbol: strings.ToUpper(symbol), chainID: chainID}]
	return token, ok
}

// ByAddress returns the token configured under the given contract address on
// the given chain. The second return value reports whether the token is
// configured.
func (r *TokenRegistry) ByAddress(address string, chainID uint64) (types.TokenInfo, bool) {
	token, ok := r.byAddress[addressKey{address: strings.ToLower(address), chainID: chainID}]
	return token, ok
}

// Tokens returns all tokens configured for the given chain.
func (r *TokenRegistry) Tokens(chainID uint64) []types.TokenInfo {
	return lo.Filter(r.tokens, func(token types.TokenInfo, _ int) bool {
		return token.ChainID == chainID
	})
}
