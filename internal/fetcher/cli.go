package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TaoSymbol prefixes every balance btcli prints.
const TaoSymbol = "τ"

var ansiEscape = regexp.MustCompile(`\x1b\[([0-9]+)(;[0-9]+)*m`)

// CLIOptions parameterise the btcli adapter.
type CLIOptions struct {
	Binary       string
	Network      string
	WalletName   string
	WalletHotkey string
	Timeout      time.Duration
}

// CLI scrapes the recycle cost from `btcli s appraise`.
type CLI struct {
	opts   CLIOptions
	logger zerolog.Logger
}

// NewCLI constructs the subprocess adapter.
func NewCLI(opts CLIOptions, logger zerolog.Logger) *CLI {
	if opts.Binary == "" {
		opts.Binary = "btcli"
	}
	if opts.Network == "" {
		opts.Network = "finney"
	}
	if opts.WalletName == "" {
		opts.WalletName = "default"
	}
	if opts.WalletHotkey == "" {
		opts.WalletHotkey = "default"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 200 * time.Second
	}
	return &CLI{opts: opts, logger: logger.With().Str("component", "btcli_fetcher").Logger()}
}

// Args returns the argument list passed to the binary for netuid.
func (c *CLI) Args(netuid string) []string {
	return []string{
		"s", "appraise",
		"--netuid", netuid,
		"--subtensor.network", c.opts.Network,
		"--wallet.name", c.opts.WalletName,
		"--wallet.hotkey", c.opts.WalletHotkey,
	}
}

// FetchCost runs btcli and parses its stdout. btcli exits non-zero after a
// successful appraisal, so the exit status is not treated as a failure.
func (c *CLI) FetchCost(ctx context.Context, netuid string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.opts.Binary, c.Args(netuid)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return decimal.Decimal{}, fmt.Errorf("%w: %s did not finish within %s", ErrTimeout, c.opts.Binary, c.opts.Timeout)
		}
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrExecution, ctxErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return decimal.Decimal{}, fmt.Errorf("%w: run %s: %v", ErrExecution, c.opts.Binary, runErr)
		}
		c.logger.Debug().Int("exit_code", exitErr.ExitCode()).Str("netuid", netuid).Msg("btcli exited non-zero")
	}

	cost, err := ParseRecycleOutput(stdout.String())
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return decimal.Decimal{}, fmt.Errorf("%w (stderr: %s)", err, msg)
		}
		return decimal.Decimal{}, err
	}
	return cost, nil
}

// StripANSI removes terminal color sequences.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// ParseRecycleOutput reads the first token after the last τ in the cleaned
// output. Thousands separators are dropped before parsing.
func ParseRecycleOutput(out string) (decimal.Decimal, error) {
	clean := StripANSI(out)
	idx := strings.LastIndex(clean, TaoSymbol)
	if idx < 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: no %s in output", ErrParse, TaoSymbol)
	}

	fields := strings.Fields(clean[idx+len(TaoSymbol):])
	if len(fields) == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: nothing follows %s", ErrParse, TaoSymbol)
	}

	token := strings.ReplaceAll(fields[0], ",", "")
	cost, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %v", ErrParse, fields[0], err)
	}
	if cost.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: negative cost %s", ErrParse, token)
	}
	return cost, nil
}

var _ CostFetcher = (*CLI)(nil)
