package solrpc

// Solana JSON-RPC client used by the poll source.
// Every call goes through rate limiter -> circuit breaker -> retry and is
// traced with a request id in monitor.log.

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	log "pump-wallet-monitor/internal/infra/log"
	"pump-wallet-monitor/internal/infra/retry"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrAccountNotFound = errors.New("account not found")

type Options struct {
	URL        string
	Commitment string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64 // requests per second
	BaseDelay  time.Duration
}

type Client struct {
	rpc            *rpc.Client
	endpoint       string
	commitment     rpc.CommitmentType
	timeout        time.Duration
	maxRetries     int
	baseDelay      time.Duration
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
}

func New(opts Options) *Client {
	if opts.Commitment == "" {
		opts.Commitment = string(rpc.CommitmentConfirmed)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	burst := int(opts.RateLimit * 2)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		rpc: rpc.NewWithHeaders(opts.URL, map[string]string{
			"Content-Type": "application/json",
		}),
		endpoint:    opts.URL,
		commitment:  rpc.CommitmentType(opts.Commitment),
		timeout:     opts.Timeout,
		maxRetries:  opts.MaxRetries,
		baseDelay:   opts.BaseDelay,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "SolanaRPC",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			// a missing account is an answer, not a sick node
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, rpc.ErrNotFound)
			},
		}),
	}
}

// IsRetryable extends retry.IsRetryable with RPC throttling codes.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound) {
		return false
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		// -32005: node is behind / rate limited, 429 from some providers
		return rpcErr.Code == -32005 || rpcErr.Code == 429
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if strings.Contains(err.Error(), "429") {
		return true
	}
	return retry.IsRetryable(err)
}

// call runs fn under the limiter, the breaker and bounded retry.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	requestID := log.GenerateRequestID()
	start := time.Now()
	log.LogRequest(requestID, method, c.endpoint)

	err := retry.Do(ctx, retry.Options{
		MaxRetries: c.maxRetries,
		BaseDelay:  c.baseDelay,
		MaxDelay:   10 * time.Second,
		Retryable:  IsRetryable,
		OnRetry: func(attempt int, err error, sleep time.Duration) {
			log.LogWarn("RPC call failed, retrying",
				zap.String("request_id", requestID),
				zap.String("method", method),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", sleep),
				zap.Error(err))
		},
	}, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			return nil, fn(callCtx)
		})
		return err
	})

	log.LogResponse(requestID, method, time.Since(start).Milliseconds(), err)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// SignatureInfo is one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
	Failed    bool
}

// SignaturesSince lists the wallet's signatures newer than until (exclusive),
// newest first. An empty until returns the latest limit signatures.
func (c *Client) SignaturesSince(ctx context.Context, wallet solana.PublicKey, until string, limit int) ([]SignatureInfo, error) {
	return c.SignaturePage(ctx, wallet, until, "", limit)
}

// SignaturePage is SignaturesSince restricted to signatures older than
// before (exclusive) when before is set.
func (c *Client) SignaturePage(ctx context.Context, wallet solana.PublicKey, until, before string, limit int) ([]SignatureInfo, error) {
	opts := &rpc.GetSignaturesForAddressOpts{Commitment: c.commitment}
	if limit > 0 {
		opts.Limit = &limit
	}
	if until != "" {
		sig, err := solana.SignatureFromBase58(until)
		if err != nil {
			return nil, fmt.Errorf("invalid until signature: %w", err)
		}
		opts.Until = sig
	}
	if before != "" {
		sig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, fmt.Errorf("invalid before signature: %w", err)
		}
		opts.Before = sig
	}

	var out []*rpc.TransactionSignature
	err := c.call(ctx, "getSignaturesForAddress", func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetSignaturesForAddressWithOpts(ctx, wallet, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	infos := make([]SignatureInfo, 0, len(out))
	for _, s := range out {
		if s == nil {
			continue
		}
		info := SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Failed:    s.Err != nil,
		}
		if s.BlockTime != nil {
			info.BlockTime = s.BlockTime.Time()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Transaction fetches and flattens a confirmed transaction.
func (c *Client) Transaction(ctx context.Context, signature string) (*Transaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	maxVersion := uint64(0)

	var res *rpc.GetTransactionResult
	err = c.call(ctx, "getTransaction", func(ctx context.Context) error {
		var err error
		res, err = c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     c.commitment,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Transaction == nil {
		return nil, fmt.Errorf("getTransaction %s: empty result", signature)
	}
	return newTransaction(signature, res)
}

// AccountData returns the raw data of an account.
func (c *Client) AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	var res *rpc.GetAccountInfoResult
	err := c.call(ctx, "getAccountInfo", func(ctx context.Context) error {
		var err error
		res, err = c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", account, ErrAccountNotFound)
		}
		return nil, err
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, fmt.Errorf("%s: %w", account, ErrAccountNotFound)
	}
	return res.Value.Data.GetBinary(), nil
}
