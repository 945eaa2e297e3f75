// Package ethereum implements the relay's chain collaborators (reader,
// broadcaster, fee estimator) over an EVM JSON-RPC endpoint.
package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/emperorhan/tx-relayer/internal/chain"
	"github.com/emperorhan/tx-relayer/internal/chain/ratelimit"
	"github.com/emperorhan/tx-relayer/internal/chain/rpc"
	"github.com/emperorhan/tx-relayer/internal/circuitbreaker"
	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/metrics"
)

// Adapter implements chain.ChainReader, chain.Broadcaster, and
// chain.FeeEstimator for one EVM endpoint. Broadcasts go through a
// circuit breaker so a dead node fails fast; every call passes the
// client-side rate limiter.
type Adapter struct {
	client  rpc.RPCClient
	chain   model.Chain
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

type Config struct {
	RPCURL       string
	Chain        model.Chain
	RateLimitRPS float64
	RateBurst    int
}

func NewAdapter(cfg Config, logger *slog.Logger) *Adapter {
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	chainLabel := cfg.Chain.String()
	breaker := circuitbreaker.New(circuitbreaker.Config{
		OnStateChange: func(from, to circuitbreaker.State) {
			open := 0.0
			if to == circuitbreaker.StateOpen {
				open = 1.0
			}
			metrics.BroadcastCircuitOpen.WithLabelValues(chainLabel).Set(open)
			logger.Warn("broadcast circuit state changed", "from", int(from), "to", int(to))
		},
	})
	return &Adapter{
		client:  rpc.NewClient(cfg.RPCURL, logger),
		chain:   cfg.Chain,
		limiter: ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateBurst, chainLabel),
		breaker: breaker,
		logger:  logger.With("component", "ethereum_adapter"),
	}
}

// NewAdapterWithClient is used by tests to inject a fake RPC client.
func NewAdapterWithClient(client rpc.RPCClient, chainID model.Chain, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:  client,
		chain:   chainID,
		limiter: ratelimit.NewLimiter(1000, 1000, chainID.String()),
		breaker: circuitbreaker.New(circuitbreaker.Config{}),
		logger:  logger,
	}
}

func (a *Adapter) ConfirmedNonce(ctx context.Context, address string) (uint64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	count, err := a.client.GetTransactionCount(ctx, address, "latest")
	ratelimit.RecordRPCCall(a.chain.String(), "eth_getTransactionCount", err)
	if err != nil {
		return 0, fmt.Errorf("confirmed nonce for %s: %w", address, err)
	}
	return count, nil
}

func (a *Adapter) Receipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	receipt, err := a.client.GetTransactionReceipt(ctx, hash)
	ratelimit.RecordRPCCall(a.chain.String(), "eth_getTransactionReceipt", err)
	if err != nil {
		return nil, fmt.Errorf("receipt for %s: %w", hash, err)
	}
	if receipt == nil {
		return nil, nil
	}

	blockNumber, err := rpc.ParseHexInt64(receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("parse receipt block number: %w", err)
	}
	return &chain.Receipt{
		TxHash:      receipt.TransactionHash,
		BlockNumber: blockNumber,
		Success:     receipt.Status == "0x1",
	}, nil
}

func (a *Adapter) Confirmations(ctx context.Context, r *chain.Receipt) (int64, error) {
	if r == nil {
		return 0, nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	head, err := a.client.GetBlockNumber(ctx)
	ratelimit.RecordRPCCall(a.chain.String(), "eth_blockNumber", err)
	if err != nil {
		return 0, fmt.Errorf("head block: %w", err)
	}
	if head < r.BlockNumber {
		// The node answering this call lags the one that served the
		// receipt. Report zero and let the next tick settle it.
		return 0, nil
	}
	return head - r.BlockNumber + 1, nil
}

func (a *Adapter) TransactionKnown(ctx context.Context, hash string) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, err
	}
	tx, err := a.client.GetTransactionByHash(ctx, hash)
	ratelimit.RecordRPCCall(a.chain.String(), "eth_getTransactionByHash", err)
	if err != nil {
		return false, fmt.Errorf("transaction lookup for %s: %w", hash, err)
	}
	return tx != nil, nil
}

func (a *Adapter) Submit(ctx context.Context, raw []byte) (string, error) {
	if err := a.breaker.Allow(); err != nil {
		return "", err
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	hash, err := a.client.SendRawTransaction(ctx, raw)
	ratelimit.RecordRPCCall(a.chain.String(), "eth_sendRawTransaction", err)
	if err != nil {
		a.breaker.RecordFailure()
		return "", err
	}
	a.breaker.RecordSuccess()
	return hash, nil
}

// Estimate prices a transaction from the latest base fee and the node's
// suggested tip. With a prior attempt it applies the replacement rule:
// each component is the estimate or the prior bumped by the minimum
// margin, whichever is higher, so the result always clears the mempool's
// replacement threshold while tracking real market moves.
func (a *Adapter) Estimate(ctx context.Context, _ model.Chain, prior *model.FeeParams) (model.FeeParams, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return model.FeeParams{}, err
	}
	tipHex, err := a.client.MaxPriorityFeePerGas(ctx)
	ratelimit.RecordRPCCall(a.chain.String(), "eth_maxPriorityFeePerGas", err)
	if err != nil {
		return model.FeeParams{}, fmt.Errorf("suggested tip: %w", err)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return model.FeeParams{}, err
	}
	block, err := a.client.GetBlockByTag(ctx, "latest")
	ratelimit.RecordRPCCall(a.chain.String(), "eth_getBlockByNumber", err)
	if err != nil {
		return model.FeeParams{}, fmt.Errorf("latest block: %w", err)
	}
	if block == nil {
		return model.FeeParams{}, fmt.Errorf("latest block not available")
	}

	tip, err := parseHexBig(tipHex)
	if err != nil {
		return model.FeeParams{}, fmt.Errorf("parse tip: %w", err)
	}
	baseFee, err := parseHexBig(block.BaseFeePerGas)
	if err != nil {
		return model.FeeParams{}, fmt.Errorf("parse base fee: %w", err)
	}

	if prior == nil {
		// Headroom of 2x base fee absorbs base fee growth across the
		// blocks a transaction may wait in the pool.
		maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
		maxFee.Add(maxFee, tip)
		return model.FeeParams{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}, nil
	}

	return escalate(*prior, baseFee, tip), nil
}

// escalate computes replacement fees. Both the tip and the base portion
// must rise by at least 10% over the prior attempt or nodes drop the
// replacement as underpriced.
func escalate(prior model.FeeParams, estBase, estTip *big.Int) model.FeeParams {
	newTip := maxBig(estTip, increaseByMinimum(prior.MaxPriorityFeePerGas))

	priorBase := new(big.Int).Sub(prior.MaxFeePerGas, prior.MaxPriorityFeePerGas)
	newBase := maxBig(estBase, increaseByMinimum(priorBase))

	return model.FeeParams{
		MaxFeePerGas:         new(big.Int).Add(newBase, newTip),
		MaxPriorityFeePerGas: newTip,
	}
}

// increaseByMinimum bumps a value by 10% plus one wei for rounding.
func increaseByMinimum(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(1)
	}
	bump := new(big.Int).Mul(v, big.NewInt(10))
	bump.Div(bump, big.NewInt(100))
	out := new(big.Int).Add(v, bump)
	return out.Add(out, big.NewInt(1))
}

func maxBig(a, b *big.Int) *big.Int {
	if a == nil {
		return b
	}
	if b == nil || a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func parseHexBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimHexPrefix(s), 16)
	if !ok {
		return nil, fmt.Errorf("parse hex %q", s)
	}
	return v, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
