package marketdata

import (
	"strings"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// DetectChain guesses the network from a provider asset identifier.
// Ethereum is the default; the heuristic only overrides it on a clear
// marker in the id.
func DetectChain(id string) domain.Chain {
	s := strings.ToLower(id)
	switch {
	case strings.Contains(s, "bsc"), strings.Contains(s, "binance"):
		return domain.ChainBsc
	case strings.Contains(s, "sol"):
		return domain.ChainSol
	case strings.Contains(s, "matic"), strings.Contains(s, "polygon"):
		return domain.ChainPolygon
	default:
		return domain.ChainEth
	}
}
