package fetcher

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Fallback asks Primary first and Secondary when it fails.
type Fallback struct {
	primary   CostFetcher
	secondary CostFetcher
	logger    zerolog.Logger
}

// NewFallback composes two fetchers behind one contract.
func NewFallback(primary, secondary CostFetcher, logger zerolog.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback_fetcher").Logger(),
	}
}

// FetchCost implements CostFetcher.
func (f *Fallback) FetchCost(ctx context.Context, netuid string) (decimal.Decimal, error) {
	cost, err := f.primary.FetchCost(ctx, netuid)
	if err == nil {
		return cost, nil
	}
	if ctx.Err() != nil {
		return decimal.Decimal{}, err
	}

	f.logger.Warn().Err(err).Str("netuid", netuid).Msg("primary recycle source failed; trying fallback")
	cost, fbErr := f.secondary.FetchCost(ctx, netuid)
	if fbErr != nil {
		return decimal.Decimal{}, errors.Join(err, fbErr)
	}
	return cost, nil
}

var _ CostFetcher = (*Fallback)(nil)
