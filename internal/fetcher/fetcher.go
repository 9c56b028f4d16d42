package fetcher

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrTimeout indicates the source did not answer within its bound.
	ErrTimeout = errors.New("recycle fetch timed out")
	// ErrParse indicates the source answered but no cost could be read from it.
	ErrParse = errors.New("recycle output not parseable")
	// ErrExecution covers subprocess and transport failures.
	ErrExecution = errors.New("recycle source failed")
	// ErrSubnetNotFound indicates the subnet is not registered on chain.
	ErrSubnetNotFound = errors.New("subnet does not exist")
)

// CostFetcher retrieves the current recycle cost of a subnet in TAO.
type CostFetcher interface {
	FetchCost(ctx context.Context, netuid string) (decimal.Decimal, error)
}
