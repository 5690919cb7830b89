package port

import (
	"context"

	"balance_tracker/internal/domain/entity"
	dexscreener_entity "balance_tracker/internal/entity"
)

// DEXScreenerClient определяет интерфейс клиента DEXScreener.
type DEXScreenerClient interface {
	// GetTokenPairs returns every pair DEXScreener knows for the given token addresses (at most 30 per call).
	GetTokenPairs(ctx context.Context, tokenAddresses []string) ([]dexscreener_entity.PairData, error)
}

// TokenPriceService определяет интерфейс для службы получения цен токенов.
type TokenPriceService interface {
	// ResolvePrices returns a quote for each resolved address and the addresses left unresolved after all retries.
	ResolvePrices(ctx context.Context, addresses []string) (map[string]entity.PriceQuote, []string, error)
}
