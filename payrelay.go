// Package payrelay implements a payment-conversion relay: a payer asks for a
// fiat-denominated amount plus a separate fee to be delivered to two
// recipients in a settlement asset, converted at a fresh oracle rate. The
// relay guarantees that the payer is charged at most the fiat-equivalent
// amount, that the main and fee transfers succeed or fail together, and that
// any failure ends in a refund rather than a stuck or half-executed payment.
package payrelay

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/vennlabs/payrelay/events"
	"github.com/vennlabs/payrelay/logger"
	"github.com/vennlabs/payrelay/metrics"
	"github.com/vennlabs/payrelay/oracle"
	"github.com/vennlabs/payrelay/saga"
	"github.com/vennlabs/payrelay/settlement"
	"github.com/vennlabs/payrelay/types"
	"github.com/vennlabs/payrelay/utils"
)

// Defaults applied when the RelayConfig leaves a knob empty.
const (
	DefaultCurrency       = "USD"
	DefaultNativeDecimals = 24
	DefaultMinCallBudget  = 50_000_000_000_000
	defaultTimeout        = 30 * time.Second
)

// PayRelay is the relay facade: the public entry points, the administrative
// configuration and the wiring of the saga collaborators.
type PayRelay struct {
	mu sync.RWMutex

	owner           string
	oracleAccount   string
	providerAccount string
	feedParser      string
	feedAddress     [32]byte
	feedPayer       [32]byte

	currency       string
	nativeDecimals uint32
	minCallBudget  uint64
	timeout        time.Duration

	orch *saga.Orchestrator

	pairSource oracle.PairSource
	feedSource oracle.FeedSource
	metaSource oracle.TokenMetadataSource
	ledger     settlement.LedgerClient
	token      settlement.TokenClient

	log     logger.Logger
	metrics metrics.Recorder
	emitter events.Emitter
	now     func() time.Time
}

// New builds a relay owned by deployer. The external collaborators are
// injected through options and wired into the orchestrator once all options
// have been applied.
func New(deployer string, cfg *types.RelayConfig, opts ...Option) (*PayRelay, error) {
	if deployer == "" {
		return nil, types.Errf(types.ErrConfig, "deployer identity is required")
	}
	p := &PayRelay{
		owner:          deployer,
		currency:       DefaultCurrency,
		nativeDecimals: DefaultNativeDecimals,
		minCallBudget:  DefaultMinCallBudget,
		timeout:        defaultTimeout,
		log:            logger.NoopLogger{},
		metrics:        metrics.NoopRecorder{},
	}
	if cfg != nil {
		if cfg.Owner != "" {
			p.owner = cfg.Owner
		}
		p.oracleAccount = cfg.OracleAccount
		p.providerAccount = cfg.ProviderAccount
		p.feedParser = cfg.FeedParser
		if cfg.SupportedCurrency != "" {
			p.currency = cfg.SupportedCurrency
		}
		if cfg.MinCallBudget != 0 {
			p.minCallBudget = cfg.MinCallBudget
		}
		if cfg.DefaultTimeout > 0 {
			p.timeout = cfg.DefaultTimeout
		}
		if cfg.FeedAddress != "" {
			addr, err := utils.DecodeFeedIdentifier(cfg.FeedAddress)
			if err != nil {
				return nil, err
			}
			p.feedAddress = addr
		}
		if cfg.FeedPayer != "" {
			payer, err := utils.DecodeFeedIdentifier(cfg.FeedPayer)
			if err != nil {
				return nil, err
			}
			p.feedPayer = payer
		}
		if cfg.LogLevel != "" {
			p.log = logger.NewZapLogger(cfg.LogLevel)
		}
		if cfg.EnableMetrics {
			p.metrics = metrics.NewPrometheusRecorder()
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.emitter == nil {
		p.emitter = events.NewLogEmitter(p.log)
	}

	resolver := oracle.NewResolver(p.pairSource, p.feedSource, p.metaSource, p.log, p.now)
	executor := settlement.NewExecutor(p.ledger, p.token, p.log)
	p.orch = saga.NewOrchestrator(resolver, executor, p.emitter, p.log, p.metrics)
	return p, nil
}

// snapshot captures the administrative configuration a saga instance starts
// with. Later setter calls never affect an in-flight instance.
func (p *PayRelay) snapshot() saga.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return saga.Config{
		OracleAccount:     p.oracleAccount,
		ProviderAccount:   p.providerAccount,
		FeedParser:        p.feedParser,
		FeedAddress:       p.feedAddress,
		FeedPayer:         p.feedPayer,
		SupportedCurrency: p.currency,
		NativeDecimals:    p.nativeDecimals,
		MinCallBudget:     p.minCallBudget,
		CallTimeout:       p.timeout,
	}
}

// TransferWithReference is the native-asset entry point. The caller attaches
// a deposit of the native asset; amount and fee are fiat values with 2
// decimals. The call returns as soon as pre-flight validation passes; the
// settlement-asset amount actually charged is reported through the terminal
// event, not the return value.
func (p *PayRelay) TransferWithReference(ctx context.Context, payer string, req types.PaymentRequest) (*saga.Handle, error) {
	req.Payer = payer
	req.TokenAddress = ""
	if req.CallBudget == 0 {
		req.CallBudget = p.minCallBudget
	}
	return p.orch.Start(ctx, p.snapshot(), req)
}

// OnTokenTransfer is the token-asset entry point, invoked by the token
// collaborator after it has moved `amount` of `token` from `sender` into the
// relay's custody. The msg string is the JSON-encoded PaymentArgs naming the
// payment. The outcome's ReturnAmount is the numeric string the token
// contract consumes to resolve the transfer: the unspent change on success,
// the full amount on failure.
func (p *PayRelay) OnTokenTransfer(ctx context.Context, token, sender string, amount *big.Int, msg string) (*saga.Handle, error) {
	args, err := utils.ParsePaymentArgs(msg)
	if err != nil {
		return nil, err
	}
	fiatAmount, err := utils.ParseFiatAmount(args.Amount)
	if err != nil {
		return nil, err
	}
	feeAmount, err := utils.ParseFiatAmount(args.FeeAmount)
	if err != nil {
		return nil, err
	}
	var maxRateTimespan time.Duration
	if args.MaxRateTimespan != "" {
		ns, err := strconv.ParseInt(args.MaxRateTimespan, 10, 64)
		if err != nil || ns < 0 {
			return nil, types.Errf(types.ErrInvalidArgs, "invalid max_rate_timespan %q", args.MaxRateTimespan)
		}
		maxRateTimespan = time.Duration(ns)
	}

	req := types.PaymentRequest{
		PaymentReference: args.PaymentReference,
		Payer:            sender,
		To:               args.To,
		Amount:           fiatAmount,
		Currency:         args.Currency,
		FeeAddress:       args.FeeAddress,
		FeeAmount:        feeAmount,
		MaxRateTimespan:  maxRateTimespan,
		Deposit:          amount,
		TokenAddress:     token,
		CallBudget:       p.minCallBudget,
	}
	return p.orch.Start(ctx, p.snapshot(), req)
}

// Version information.
const Version = "1.0.0"
