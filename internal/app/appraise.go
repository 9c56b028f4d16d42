package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"recycle-watch/internal/fetcher"
)

// Appraise prints the recycle cost of netuid in the same format btcli uses,
// so the text adapter can read it back. It never registers anything.
func (a *App) Appraise(ctx context.Context, netuid string, w io.Writer) error {
	chain := a.newChain()
	defer chain.Close()

	cost, err := chain.FetchCost(ctx, netuid)
	if err != nil {
		if errors.Is(err, fetcher.ErrSubnetNotFound) {
			fmt.Fprintf(w, "Subnet %s does not exist\n", netuid)
			return nil
		}
		return err
	}

	fmt.Fprintf(w, "Current recycle for subnet %s is %s%s TAO\n", netuid, fetcher.TaoSymbol, cost.StringFixed(9))
	return nil
}
