// Package saga coordinates the payment-conversion chain: rate resolution,
// fixed-point conversion, the chained dual transfer and the terminal
// finalization or refund. A saga instance has no persisted state; the full
// context of an in-flight payment is one value threaded through every step,
// and each remote call is a suspension point after which that value is the
// only thing the next step receives.
//
// States: Validating -> AwaitingRateOrMetadata -> Computing ->
// AwaitingTransfer -> Finalized (Settled or Refunded). Validation failures
// are the only synchronous errors; every later failure ends the saga with a
// compensating refund of the entire deposit. No step is ever retried.
package saga

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/vennlabs/payrelay/conversion"
	"github.com/vennlabs/payrelay/events"
	"github.com/vennlabs/payrelay/logger"
	"github.com/vennlabs/payrelay/metrics"
	"github.com/vennlabs/payrelay/oracle"
	"github.com/vennlabs/payrelay/settlement"
	"github.com/vennlabs/payrelay/types"
	"github.com/vennlabs/payrelay/utils"
)

// Config is the read-only administrative snapshot a saga instance starts
// with. It is captured once at entry; later administrative changes never
// affect an in-flight instance.
type Config struct {
	// Pair-shape oracle identity, used for token settlements.
	OracleAccount   string
	ProviderAccount string

	// Feed-shape oracle identity, used for native settlements.
	FeedParser  string
	FeedAddress [32]byte
	FeedPayer   [32]byte

	// SupportedCurrency restricts native settlements to one fiat ticker.
	SupportedCurrency string

	// NativeDecimals is the decimal count of the native settlement asset.
	NativeDecimals uint32

	// MinCallBudget is the smallest acceptable resource quota for the
	// whole chain. Requests below it are rejected before any remote call.
	MinCallBudget uint64

	// CallTimeout bounds the whole remote chain when non-zero.
	CallTimeout time.Duration
}

// Orchestrator drives saga instances. One orchestrator serves any number of
// concurrent instances; they share nothing but the injected collaborators.
type Orchestrator struct {
	resolver *oracle.Resolver
	executor *settlement.Executor
	emitter  events.Emitter
	log      logger.Logger
	metrics  metrics.Recorder
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(resolver *oracle.Resolver, executor *settlement.Executor, emitter events.Emitter, log logger.Logger, rec metrics.Recorder) *Orchestrator {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Orchestrator{
		resolver: resolver,
		executor: executor,
		emitter:  emitter,
		log:      log,
		metrics:  rec,
	}
}

// Handle is the caller's view of an in-flight saga. The terminal outcome is
// delivered exactly once on Outcome.
type Handle struct {
	outcome chan types.SagaOutcome
}

// Outcome yields the terminal SagaOutcome.
func (h *Handle) Outcome() <-chan types.SagaOutcome {
	return h.outcome
}

// Wait blocks until the saga finalizes or the context ends.
func (h *Handle) Wait(ctx context.Context) (types.SagaOutcome, error) {
	select {
	case out := <-h.outcome:
		return out, nil
	case <-ctx.Done():
		return types.SagaOutcome{}, ctx.Err()
	}
}

// instance is the complete context of one saga, passed by value between
// steps. Nothing else survives a suspension point.
type instance struct {
	req   types.PaymentRequest
	cfg   Config
	state types.SagaState
	entry *types.PriceEntry
	meta  *types.TokenMetadata
	plan  types.PaymentPlan
	began time.Time
}

// Start validates the request synchronously and launches the asynchronous
// chain. A non-nil error means nothing happened: no remote call was issued
// and no funds moved. After a nil return the eventual result, success or
// refund, arrives only through the Handle and the event emitter.
func (o *Orchestrator) Start(ctx context.Context, cfg Config, req types.PaymentRequest) (*Handle, error) {
	if err := o.validate(cfg, req); err != nil {
		o.metrics.IncCounter(metrics.CounterRejected, map[string]string{"asset": string(req.Asset())})
		return nil, err
	}

	h := &Handle{outcome: make(chan types.SagaOutcome, 1)}
	inst := instance{
		req:   req,
		cfg:   cfg,
		state: types.StateAwaitingRateOrMetadata,
		began: time.Now(),
	}
	go o.run(ctx, inst, h)
	return h, nil
}

// validate is the Validating state: reference format, currency support and
// call budget. The only class of error surfaced synchronously.
func (o *Orchestrator) validate(cfg Config, req types.PaymentRequest) error {
	if req.CallBudget < cfg.MinCallBudget {
		return types.Errf(types.ErrInsufficientBudget,
			"Not enough attached Gas to call this method (Supplied: %d. Demand: %d)",
			req.CallBudget, cfg.MinCallBudget)
	}
	if err := utils.ValidateRequest(&req); err != nil {
		return err
	}
	if req.Asset() == types.AssetNative && req.Currency != cfg.SupportedCurrency {
		return types.Errf(types.ErrUnsupportedCurrency,
			"Only payments denominated in %s are implemented for now", cfg.SupportedCurrency)
	}
	return nil
}

// run drives the instance through its remaining states. Each step receives
// the instance by value and hands an updated copy to the next.
func (o *Orchestrator) run(ctx context.Context, inst instance, h *Handle) {
	if inst.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inst.cfg.CallTimeout)
		defer cancel()
	}

	rateStart := time.Now()
	inst, err := o.resolveRate(ctx, inst)
	o.observe(metrics.OpRateResolution, rateStart, inst.req)
	if err != nil {
		o.refund(ctx, inst, err, h)
		return
	}

	inst.state = types.StateComputing
	inst, err = o.compute(inst)
	if err != nil {
		o.refund(ctx, inst, err, h)
		return
	}

	inst.state = types.StateAwaitingTransfer
	transferStart := time.Now()
	err = o.transfer(ctx, inst)
	o.observe(metrics.OpTransfer, transferStart, inst.req)
	if err != nil {
		o.refund(ctx, inst, err, h)
		return
	}

	o.settle(ctx, inst, h)
}

// resolveRate is the AwaitingRateOrMetadata state.
func (o *Orchestrator) resolveRate(ctx context.Context, inst instance) (instance, error) {
	switch inst.req.Asset() {
	case types.AssetToken:
		entry, meta, err := o.resolver.ResolveToken(ctx,
			inst.req.TokenAddress, inst.req.Currency,
			inst.cfg.ProviderAccount, inst.req.MaxRateTimespan)
		if err != nil {
			return inst, err
		}
		inst.entry = entry
		inst.meta = meta
	default:
		entry, err := o.resolver.ResolveNative(ctx,
			inst.cfg.FeedAddress, inst.cfg.FeedPayer, inst.req.MaxRateTimespan)
		if err != nil {
			return inst, err
		}
		inst.entry = entry
	}
	return inst, nil
}

// compute is the Computing state: the synchronous fixed-point conversion and
// the deposit check, both inside the rate continuation.
func (o *Orchestrator) compute(inst instance) (instance, error) {
	decimals := inst.cfg.NativeDecimals
	if inst.req.Asset() == types.AssetToken {
		decimals = inst.meta.Decimals
	}
	plan, err := conversion.ConvertPlan(&inst.req, inst.entry, decimals)
	if err != nil {
		return inst, err
	}
	inst.plan = plan
	if err := settlement.CheckDeposit(plan, inst.req.Deposit); err != nil {
		return inst, err
	}
	return inst, nil
}

// transfer is the AwaitingTransfer state: both legs, chained.
func (o *Orchestrator) transfer(ctx context.Context, inst instance) error {
	if inst.req.Asset() == types.AssetToken {
		return o.executor.ExecuteToken(ctx, inst.req.TokenAddress, inst.plan, inst.req.To, inst.req.FeeAddress)
	}
	return o.executor.ExecuteNative(ctx, inst.plan, inst.req.To, inst.req.FeeAddress)
}

// settle finalizes a successful chain: change back to the payer, the
// structured success event, the Settled outcome. Only the saga's own chain
// can reach this step; it is not exported and no external caller can forge a
// success finalization.
func (o *Orchestrator) settle(ctx context.Context, inst instance, h *Handle) {
	change := new(big.Int).Sub(inst.req.Deposit, inst.plan.Total)

	outcome := types.SagaOutcome{
		Status: types.OutcomeSettled,
		Change: change,
	}
	if inst.req.Asset() == types.AssetToken {
		outcome.ReturnAmount = change.String()
	} else {
		o.executor.RefundNative(ctx, inst.req.Payer, change)
	}

	event := types.PaymentEvent{
		To:               inst.req.To,
		Amount:           inst.req.Amount.String(),
		Currency:         inst.req.Currency,
		PaymentReference: inst.req.PaymentReference,
		FeeAmount:        inst.req.FeeAmount.String(),
		FeeAddress:       inst.req.FeeAddress,
		MaxRateTimespan:  strconv.FormatInt(int64(inst.req.MaxRateTimespan), 10),
	}
	if inst.req.Asset() == types.AssetToken {
		event.TokenAddress = inst.req.TokenAddress
		event.CryptoAmount = inst.plan.MainAmount.String()
		event.CryptoFeeAmount = inst.plan.FeeAmount.String()
	}
	if err := o.emitter.Emit(ctx, event); err != nil {
		o.log.Error("event emission failed", map[string]any{
			"payment_reference": inst.req.PaymentReference,
			"err":               err.Error(),
		})
	}

	o.metrics.IncCounter(metrics.CounterSettled, map[string]string{"asset": string(inst.req.Asset())})
	o.observe(metrics.OpSaga, inst.began, inst.req)
	o.finalize(inst, outcome, h)
}

// refund compensates a failed chain: the entire original deposit goes back
// to the payer, never a partial settlement.
func (o *Orchestrator) refund(ctx context.Context, inst instance, cause error, h *Handle) {
	o.log.Warn("Failed to complete payment. Returning attached deposit to payer", map[string]any{
		"payment_reference": inst.req.PaymentReference,
		"to":                inst.req.To,
		"deposit":           inst.req.Deposit.String(),
		"payer":             inst.req.Payer,
		"reason":            cause.Error(),
	})

	outcome := types.SagaOutcome{
		Status: types.OutcomeRefunded,
		Reason: cause.Error(),
		Refund: new(big.Int).Set(inst.req.Deposit),
	}
	if inst.req.Asset() == types.AssetToken {
		outcome.ReturnAmount = inst.req.Deposit.String()
	} else {
		o.executor.RefundNative(ctx, inst.req.Payer, inst.req.Deposit)
	}

	o.metrics.IncCounter(metrics.CounterRefunded, map[string]string{"asset": string(inst.req.Asset())})
	o.observe(metrics.OpSaga, inst.began, inst.req)
	o.finalize(inst, outcome, h)
}

// finalize marks the terminal state and delivers the outcome exactly once.
func (o *Orchestrator) finalize(inst instance, outcome types.SagaOutcome, h *Handle) {
	inst.state = types.StateFinalized
	h.outcome <- outcome
}

func (o *Orchestrator) observe(op string, since time.Time, req types.PaymentRequest) {
	o.metrics.ObserveLatency(op, time.Since(since), map[string]string{"asset": string(req.Asset())})
}
