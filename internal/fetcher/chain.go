package fetcher

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// raoExponent scales on-chain rao balances to TAO.
const raoExponent = -9

// DefaultBurnRao is the runtime's initial burn (1 TAO). Burn is a value
// query, so an absent entry resolves to it.
const DefaultBurnRao uint64 = 1_000_000_000

// ChainOptions parameterise the subtensor RPC fetcher.
type ChainOptions struct {
	Endpoint       string
	Timeout        time.Duration
	DefaultBurnRao uint64
}

// Chain reads the recycle cost straight from subtensor storage.
type Chain struct {
	opts      ChainOptions
	logger    zerolog.Logger
	client    *rpc.Client
	clientMux sync.Mutex
}

// NewChain builds a chain fetcher. The connection is dialed on first use.
func NewChain(opts ChainOptions, logger zerolog.Logger) *Chain {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DefaultBurnRao == 0 {
		opts.DefaultBurnRao = DefaultBurnRao
	}
	return &Chain{opts: opts, logger: logger.With().Str("component", "chain_fetcher").Logger()}
}

// SubnetExists reads SubtensorModule.NetworksAdded(netuid).
func (c *Chain) SubnetExists(ctx context.Context, netuid string) (bool, error) {
	id, err := ParseNetUID(netuid)
	if err != nil {
		return false, err
	}
	return c.subnetExists(ctx, id)
}

// FetchCost reads SubtensorModule.Burn(netuid) and converts rao to TAO.
func (c *Chain) FetchCost(ctx context.Context, netuid string) (decimal.Decimal, error) {
	id, err := ParseNetUID(netuid)
	if err != nil {
		return decimal.Decimal{}, err
	}

	exists, err := c.subnetExists(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !exists {
		return decimal.Decimal{}, fmt.Errorf("%w: netuid %s", ErrSubnetNotFound, netuid)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	raw, err := c.getStorage(ctx, storageMapKey(subtensorPallet, "Burn", id))
	if err != nil {
		return decimal.Decimal{}, err
	}

	burn := c.opts.DefaultBurnRao
	switch len(raw) {
	case 0:
		c.logger.Debug().Str("netuid", netuid).Msg("burn entry absent; using runtime default")
	case 8:
		burn = binary.LittleEndian.Uint64(raw)
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: burn for netuid %s has %d bytes", ErrParse, netuid, len(raw))
	}

	rao := new(big.Int).SetUint64(burn)
	return decimal.NewFromBigInt(rao, raoExponent), nil
}

func (c *Chain) subnetExists(ctx context.Context, id uint16) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	raw, err := c.getStorage(ctx, storageMapKey(subtensorPallet, "NetworksAdded", id))
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	return raw[0] == 1, nil
}

// Close drops the RPC connection if one was opened.
func (c *Chain) Close() {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

func (c *Chain) getStorage(ctx context.Context, key string) ([]byte, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	var result *string
	if err := client.CallContext(ctx, &result, "state_getStorage", key); err != nil {
		return nil, c.classify(ctx, err)
	}
	if result == nil {
		return nil, nil
	}

	raw, err := hexutil.Decode(*result)
	if err != nil {
		return nil, fmt.Errorf("%w: storage value %q: %v", ErrParse, *result, err)
	}
	return raw, nil
}

func (c *Chain) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: subtensor rpc after %s", ErrTimeout, c.opts.Timeout)
	}
	return fmt.Errorf("%w: subtensor rpc: %v", ErrExecution, err)
}

func (c *Chain) getClient(ctx context.Context) (*rpc.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.opts.Endpoint == "" {
		return nil, errors.New("subtensor endpoint not configured")
	}

	client, err := rpc.DialContext(ctx, c.opts.Endpoint)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("endpoint", c.opts.Endpoint).Msg("connected to subtensor")
	c.client = client
	return client, nil
}

var _ CostFetcher = (*Chain)(nil)
