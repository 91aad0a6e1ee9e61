package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

const defaultReadsPerSecond = 5

// EVMAdapter reads head information from an EVM JSON-RPC endpoint. Outbound
// reads are rate limited so a burst of pollers cannot hammer a public RPC.
type EVMAdapter struct {
	client    *ethclient.Client
	networkID uint64
	limiter   *rate.Limiter
}

// EVMOption adjusts an EVMAdapter.
type EVMOption func(*evmConfig)

type evmConfig struct {
	readsPerSecond float64
	burst          int
}

// WithReadLimit overrides the outbound read rate limit.
func WithReadLimit(perSecond float64, burst int) EVMOption {
	return func(cfg *evmConfig) {
		if perSecond > 0 {
			cfg.readsPerSecond = perSecond
		}
		if burst > 0 {
			cfg.burst = burst
		}
	}
}

// DialEVM connects to an EVM JSON-RPC endpoint and resolves its chain ID.
func DialEVM(ctx context.Context, rpcURL string, opts ...EVMOption) (*EVMAdapter, error) {
	cfg := evmConfig{readsPerSecond: defaultReadsPerSecond, burst: defaultReadsPerSecond}
	for _, opt := range opts {
		opt(&cfg)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve chain id for %s: %w", rpcURL, err)
	}
	return &EVMAdapter{
		client:    client,
		networkID: chainID.Uint64(),
		limiter:   rate.NewLimiter(rate.Limit(cfg.readsPerSecond), cfg.burst),
	}, nil
}

// NetworkID returns the chain ID resolved at dial time.
func (a *EVMAdapter) NetworkID() uint64 {
	return a.networkID
}

// Head fetches the latest header.
func (a *EVMAdapter) Head(ctx context.Context) (Head, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return Head{}, err
	}
	header, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return Head{}, fmt.Errorf("fetch head: %w", err)
	}
	return Head{
		Number: header.Number.Uint64(),
		Time:   time.Unix(int64(header.Time), 0).UTC(),
	}, nil
}

// Close releases the underlying RPC connection.
func (a *EVMAdapter) Close() {
	a.client.Close()
}
