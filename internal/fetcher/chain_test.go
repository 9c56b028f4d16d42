package fetcher

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []string        `json:"params"`
}

func newSubtensorServer(t *testing.T, storage map[string]any, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		if req.Method != "state_getStorage" {
			t.Errorf("unexpected method %s", req.Method)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		var result any
		if len(req.Params) == 1 {
			result = storage[req.Params[0]]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

func TestTwox128KnownPrefixes(t *testing.T) {
	cases := map[string]string{
		"System":  "26aa394eea5630e07c48ae0c9558cef7",
		"Account": "b99d880ec681799c0cf30e8886371da9",
	}
	for in, want := range cases {
		if got := hex.EncodeToString(twox128([]byte(in))); got != want {
			t.Errorf("twox128(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestStorageMapKeyAppendsNetUID(t *testing.T) {
	key := storageMapKey(subtensorPallet, "Burn", 20)
	raw, err := hexutil.Decode(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 34 {
		t.Fatalf("expected 34 bytes, got %d", len(raw))
	}
	if raw[32] != 20 || raw[33] != 0 {
		t.Fatalf("netuid should be little-endian suffix, got %x", raw[32:])
	}
}

func TestParseNetUID(t *testing.T) {
	if _, err := ParseNetUID("70000"); !errors.Is(err, ErrParse) {
		t.Fatalf("netuid beyond u16 should fail with ErrParse, got %v", err)
	}
	if v, err := ParseNetUID("20"); err != nil || v != 20 {
		t.Fatalf("unexpected %d %v", v, err)
	}
}

func TestChainFetchCost(t *testing.T) {
	burn := hexutil.Encode(binary.LittleEndian.AppendUint64(nil, 300_000_000))
	srv := newSubtensorServer(t, map[string]any{
		storageMapKey(subtensorPallet, "NetworksAdded", 20): "0x01",
		storageMapKey(subtensorPallet, "Burn", 20):          burn,
	}, 0)
	defer srv.Close()

	c := NewChain(ChainOptions{Endpoint: srv.URL, Timeout: time.Second}, noopLogger())
	defer c.Close()

	cost, err := c.FetchCost(context.Background(), "20")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !cost.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected 0.3, got %s", cost)
	}
}

func TestChainSubnetMissing(t *testing.T) {
	srv := newSubtensorServer(t, map[string]any{}, 0)
	defer srv.Close()

	c := NewChain(ChainOptions{Endpoint: srv.URL, Timeout: time.Second}, noopLogger())
	defer c.Close()

	exists, err := c.SubnetExists(context.Background(), "99")
	if err != nil || exists {
		t.Fatalf("subnet 99 should not exist: %v %v", exists, err)
	}
	if _, err := c.FetchCost(context.Background(), "99"); !errors.Is(err, ErrSubnetNotFound) {
		t.Fatalf("expected ErrSubnetNotFound, got %v", err)
	}
}

func TestChainInvalidNetUIDNeverDials(t *testing.T) {
	c := NewChain(ChainOptions{}, noopLogger())
	if _, err := c.FetchCost(context.Background(), "sn20"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if _, err := c.SubnetExists(context.Background(), "-1"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestChainAbsentBurnUsesDefault(t *testing.T) {
	srv := newSubtensorServer(t, map[string]any{
		storageMapKey(subtensorPallet, "NetworksAdded", 7): "0x01",
	}, 0)
	defer srv.Close()

	c := NewChain(ChainOptions{Endpoint: srv.URL, Timeout: time.Second}, noopLogger())
	defer c.Close()

	cost, err := c.FetchCost(context.Background(), "7")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !cost.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("absent burn should resolve to 1 TAO, got %s", cost)
	}

	custom := NewChain(ChainOptions{Endpoint: srv.URL, Timeout: time.Second, DefaultBurnRao: 500_000_000}, noopLogger())
	defer custom.Close()
	if cost, err := custom.FetchCost(context.Background(), "7"); err != nil || !cost.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected configured default 0.5, got %s %v", cost, err)
	}
}

func TestChainMalformedBurn(t *testing.T) {
	srv := newSubtensorServer(t, map[string]any{
		storageMapKey(subtensorPallet, "NetworksAdded", 1): "0x01",
		storageMapKey(subtensorPallet, "Burn", 1):          "0x0102",
	}, 0)
	defer srv.Close()

	c := NewChain(ChainOptions{Endpoint: srv.URL, Timeout: time.Second}, noopLogger())
	defer c.Close()

	if _, err := c.FetchCost(context.Background(), "1"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestChainTimeout(t *testing.T) {
	srv := newSubtensorServer(t, map[string]any{}, 2*time.Second)
	defer srv.Close()

	c := NewChain(ChainOptions{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, noopLogger())
	defer c.Close()

	if _, err := c.FetchCost(context.Background(), "20"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestChainMissingEndpoint(t *testing.T) {
	c := NewChain(ChainOptions{}, noopLogger())
	if _, err := c.FetchCost(context.Background(), "20"); !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution, got %v", err)
	}
}
