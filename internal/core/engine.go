package core

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"RedeemLedger/internal/auth"
	"RedeemLedger/internal/event"
	"RedeemLedger/internal/ledger"
	"RedeemLedger/internal/liquidity"
	fpmath "RedeemLedger/internal/math"
	"RedeemLedger/internal/observability"
	"RedeemLedger/internal/state"
	"RedeemLedger/internal/token"
)

// SettlementCore is the single-threaded command processor. One command
// completes in its entirety — including all collaborator calls —
// before the next begins; there is no interleaving of two in-flight
// mutating operations against the same queue state.
type SettlementCore struct {
	sequence          int64
	hasher            *StateHasher
	queue             *state.QueueManager
	balances          *ledger.BalanceTracker
	journalGen        *ledger.JournalGenerator
	validator         *ledger.InvariantValidator
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics

	tokens    token.Manager
	transfers token.Ledger
	liquidity *liquidity.Adapter
	authz     auth.Authorizer

	tokenAsset  ledger.AssetID
	payoutAsset ledger.AssetID

	// During log replay the commands already executed their external
	// transfers; re-invoking the collaborators would double-move funds.
	replaying bool

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

// CoreOutput is what the core emits per applied command. Head and
// Tail capture the frontier as of this command, so downstream
// consumers never read queue state across goroutines.
type CoreOutput struct {
	Envelope   *event.EventEnvelope
	Batch      *ledger.JournalBatch
	Settlement *event.SettlementExecuted
	StateDelta []byte
	Head       int64
	Tail       int64
}

// Collaborators bundles the injected external capabilities (spec'd by
// the fund's token manager, token ledger, price oracle and RBAC).
type Collaborators struct {
	Tokens     token.Manager
	Transfers  token.Ledger
	Liquidity  *liquidity.Adapter
	Authorizer auth.Authorizer
}

func NewSettlementCore(
	startSequence int64,
	persistChan, projectionChan chan<- CoreOutput,
	collab Collaborators,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *SettlementCore {
	balances := ledger.NewBalanceTracker()
	tokenAsset, _ := ledger.GetAssetID("RWAF")
	payoutAsset, _ := ledger.GetAssetID("USDC")

	return &SettlementCore{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		queue:             state.NewQueueManager(),
		balances:          balances,
		journalGen:        ledger.NewJournalGenerator(startSequence, balances),
		validator:         ledger.NewInvariantValidator(balances),
		idempotency:       NewIdempotencyChecker(1_000_000, dbChecker),
		sequenceValidator: NewSequenceValidator(),
		metrics:           metrics,
		tokens:            collab.Tokens,
		transfers:         collab.Transfers,
		liquidity:         collab.Liquidity,
		authz:             collab.Authorizer,
		tokenAsset:        tokenAsset,
		payoutAsset:       payoutAsset,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// ProcessEvent is the main processing pipeline
func (c *SettlementCore) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	isDuplicate := c.idempotency.IsDuplicate(eventType, idempotencyKey)

	// Step 2: Sequence validation (single queue partition). During
	// replay the log itself is the ordering authority — the validator
	// is synced from each logged row instead of re-validated, since
	// rejected commands consumed sequences without being logged.
	if c.replaying {
		c.sequenceValidator.SyncToSource("queue", evt.SourceSequence())
	} else if err := c.sequenceValidator.ValidateSequence("queue", evt.SourceSequence(), idempotencyKey, isDuplicate); err != nil {
		return fmt.Errorf("sequence validation failed: %w", err)
	}

	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: Role authorization. Checked before dispatch so an
	// unauthorized command never reaches the queue state.
	if err := c.authorize(evt); err != nil {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "unauthorized").Inc()
		}
		return err
	}

	// Step 4: Dispatch
	batch, settlement, err := c.dispatchEvent(evt)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "rejected").Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 5: Validate and apply journals. Commands that only touch
	// queue metadata (BatchOpened, no-op fulfillments) produce no
	// journals but still need an envelope in the event log.
	if batch != nil && len(batch.Journals) > 0 {
		if err := c.validator.ValidateBatchBalance(batch); err != nil {
			panic(fmt.Sprintf("FATAL: unbalanced journal batch: %v", err))
		}
		if err := c.balances.ApplyBatch(batch); err != nil {
			return fmt.Errorf("apply batch failed: %w", err)
		}
		if c.metrics != nil {
			for _, j := range batch.Journals {
				c.metrics.CoreJournals.WithLabelValues(j.JournalType.String()).Inc()
			}
		}
	}

	// Step 6: Frontier advancement. Lazy: runs after every fulfillment
	// attempt, settling any fully drained batches below it.
	if evt.EventType() == event.EventTypeFulfillBatch {
		c.queue.AdvanceSettledFrontier()
	}

	// Step 7: Post-checks
	if err := c.postCheckInvariants(evt); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 8: State digest, hash chain, envelope
	stateDigest := c.computeStateDigest(batch)
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	payload, err := event.MarshalWire(evt)
	if err != nil {
		panic(fmt.Sprintf("FATAL: marshal command for log: %v", err))
	}

	envelope := &event.EventEnvelope{
		Sequence:       c.sequence,
		IdempotencyKey: idempotencyKey,
		EventType:      evt.EventType(),
		BatchIndex:     c.resolveBatchIndex(evt),
		Timestamp:      c.getEventTimestamp(evt),
		SourceSequence: evt.SourceSequence(),
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Batch:      batch,
		Settlement: settlement,
		StateDelta: stateDigest,
		Head:       c.queue.Head(),
		Tail:       c.queue.Tail(),
	}
	c.sequence++

	// Step 9: Emit outputs. Persistence uses a BLOCKING send — the
	// core stalls until the persistence worker drains, so no applied
	// command is ever lost. Projections use a NON-BLOCKING send with
	// drop; they rebuild from the event log if they fall behind.
	// Replayed commands are already in the log and are not re-emitted.
	if !c.replaying {
		c.persistChan <- output

		select {
		case c.projectionChan <- output:
		default:
			if c.metrics != nil {
				c.metrics.ProjectionDrops.Inc()
			}
		}
	}

	// Step 10: Mark as processed
	c.idempotency.MarkProcessed(eventType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		c.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
		c.metrics.QueueHead.Set(float64(c.queue.Head()))
		c.metrics.QueueTail.Set(float64(c.queue.Tail()))
	}

	return nil
}

// authorize enforces the role each command requires.
func (c *SettlementCore) authorize(evt event.Event) error {
	switch evt.EventType() {
	case event.EventTypeBatchOpened, event.EventTypeFulfillBatch:
		if !c.authz.IsOperator(evt.Caller()) {
			return fmt.Errorf("%w: %s requires operator, caller=%s",
				ErrUnauthorized, evt.EventType(), evt.Caller())
		}
	case event.EventTypeRedemptionRequested:
		if !c.authz.IsWhitelisted(evt.Caller()) {
			return fmt.Errorf("%w: %s requires whitelist, caller=%s",
				ErrUnauthorized, evt.EventType(), evt.Caller())
		}
	case event.EventTypeRedemptionCancelled:
		// Users act on their own request; the (batch, caller) key is
		// the authorization.
	}
	return nil
}

func (c *SettlementCore) dispatchEvent(evt event.Event) (*ledger.JournalBatch, *event.SettlementExecuted, error) {
	switch e := evt.(type) {
	case *event.BatchOpened:
		return c.handleBatchOpened(e)
	case *event.RedemptionRequested:
		return c.handleRedemptionRequested(e)
	case *event.RedemptionCancelled:
		return c.handleRedemptionCancelled(e)
	case *event.FulfillBatch:
		return c.handleFulfillBatch(e)
	default:
		return nil, nil, fmt.Errorf("unknown event type: %T", evt)
	}
}

// handleBatchOpened appends an empty batch. Implicitly closes the
// previous one: only tail-1 accepts new requests, there is no
// separate close operation or state flag.
func (c *SettlementCore) handleBatchOpened(evt *event.BatchOpened) (*ledger.JournalBatch, *event.SettlementExecuted, error) {
	index := c.queue.OpenBatch()

	if c.metrics != nil {
		c.metrics.BatchesOpened.Inc()
	}
	_ = index

	return c.emptyJournalBatch(evt.IdempotencyKey(), evt.Timestamp.UnixMicro()), nil, nil
}

// handleRedemptionRequested escrows the user's tokens and registers
// the request against the open batch. All preconditions are checked
// before the escrow transfer so a failure leaves no state behind.
func (c *SettlementCore) handleRedemptionRequested(evt *event.RedemptionRequested) (*ledger.JournalBatch, *event.SettlementExecuted, error) {
	if !c.queue.HasOpenBatch() {
		return nil, nil, fmt.Errorf("%w: no open batch accepts requests", ErrInvalidBatchState)
	}
	if evt.Amount <= 0 {
		return nil, nil, fmt.Errorf("%w: non-positive amount %d", ErrInvalidBatchState, evt.Amount)
	}

	open := c.queue.OpenIndex()
	if existing := c.queue.GetRequest(open, evt.UserID); existing != nil && existing.Pending > 0 {
		return nil, nil, fmt.Errorf("%w: user %s already has a live request in batch %d",
			ErrInvalidBatchState, evt.UserID, open)
	}

	// External call first: move tokens into custody. Queue state is
	// only mutated once the transfer has succeeded.
	if !c.replaying {
		if err := c.transfers.EscrowTransferIn(evt.UserID, evt.Amount); err != nil {
			if errors.Is(err, token.ErrInsufficientBalance) {
				return nil, nil, fmt.Errorf("%w: %v", ErrInsufficientTokenBalance, err)
			}
			return nil, nil, fmt.Errorf("%w: escrow in: %v", ErrTransferFailure, err)
		}
	}

	if _, err := c.queue.CreateRequest(evt.UserID, evt.Amount); err != nil {
		// Preconditions were checked above; reaching here means the
		// queue and the checks disagree.
		panic(fmt.Sprintf("FATAL: create request after precheck: %v", err))
	}

	batch, err := c.journalGen.GenerateEscrowIn(
		evt.UserID, evt.RequestID, evt.Amount, c.tokenAsset, evt.Timestamp.UnixMicro())
	if err != nil {
		return nil, nil, err
	}

	if c.metrics != nil {
		c.metrics.RequestsCreated.Inc()
	}

	return batch, nil, nil
}

// handleRedemptionCancelled returns the full pending amount of the
// user's escrowed tokens. Any unsettled batch may be targeted, not
// only the open one.
func (c *SettlementCore) handleRedemptionCancelled(evt *event.RedemptionCancelled) (*ledger.JournalBatch, *event.SettlementExecuted, error) {
	if evt.Batch < c.queue.Head() || evt.Batch >= c.queue.Tail() {
		return nil, nil, fmt.Errorf("%w: batch %d outside unsettled window [%d, %d)",
			ErrInvalidBatchState, evt.Batch, c.queue.Head(), c.queue.Tail())
	}

	req := c.queue.GetRequest(evt.Batch, evt.UserID)
	if req == nil || req.Pending <= 0 {
		return nil, nil, fmt.Errorf("%w: user %s in batch %d", ErrInsufficientPending, evt.UserID, evt.Batch)
	}
	pending := req.Pending

	if !c.replaying {
		if err := c.transfers.EscrowTransferOut(evt.UserID, pending); err != nil {
			return nil, nil, fmt.Errorf("%w: escrow out: %v", ErrTransferFailure, err)
		}
	}

	if _, err := c.queue.CancelRequest(evt.Batch, evt.UserID); err != nil {
		panic(fmt.Sprintf("FATAL: cancel request after precheck: %v", err))
	}

	batch, err := c.journalGen.GenerateEscrowReturn(
		evt.UserID, evt.CancelID, pending, c.tokenAsset, evt.Timestamp.UnixMicro())
	if err != nil {
		return nil, nil, err
	}

	if c.metrics != nil {
		c.metrics.RequestsCancelled.Inc()
	}

	return batch, nil, nil
}

// handleFulfillBatch settles a batch against the operator-supplied
// fiat amount: convert to redeemable tokens at NAV, cap at the batch
// pending total, verify payout liquidity, then distribute fully or
// pro-rata in participant insertion order.
func (c *SettlementCore) handleFulfillBatch(evt *event.FulfillBatch) (*ledger.JournalBatch, *event.SettlementExecuted, error) {
	b := c.queue.GetBatch(evt.Batch)
	if b == nil {
		return nil, nil, fmt.Errorf("%w: unknown batch %d", ErrInvalidBatchState, evt.Batch)
	}

	// Idempotent no-op on settled batches: periodic cleanup calls are
	// allowed and only advance the frontier.
	if b.PendingTotal == 0 {
		return c.emptyJournalBatch(evt.IdempotencyKey(), evt.Timestamp.UnixMicro()), nil, nil
	}

	if evt.Batch < c.queue.Head() {
		return nil, nil, fmt.Errorf("%w: batch %d below settled frontier %d",
			ErrInvalidBatchState, evt.Batch, c.queue.Head())
	}
	if evt.FiatAmount <= 0 {
		return nil, nil, fmt.Errorf("%w: non-positive fiat amount %d", ErrInvalidBatchState, evt.FiatAmount)
	}

	nav := c.tokens.CurrentNAV()
	if nav <= 0 {
		return nil, nil, fmt.Errorf("token manager returned non-positive NAV: %d", nav)
	}

	redeemable := fpmath.ComputeRedeemable(evt.FiatAmount, nav)

	// Liquidity check covers the full operator-supplied fiat amount,
	// before any distribution.
	if !c.replaying {
		if _, err := c.liquidity.AuthorizePayout(evt.FiatAmount); err != nil {
			return nil, nil, err
		}
	}

	plan := fpmath.ComputeSettlement(evt.Batch, nav, redeemable, b.PendingTotal, c.participantPendings(b))

	if plan.Distributed == 0 {
		// Fiat amount too small to settle a single token unit at the
		// pro-rata floor. Nothing to burn or pay out.
		return c.emptyJournalBatch(evt.IdempotencyKey(), evt.Timestamp.UnixMicro()), nil, nil
	}

	holder := c.tokens.RedemptionTokenAddress()
	legs := make([]ledger.SettlementLeg, 0, len(plan.Shares))
	var fiatDisbursed, payoutUnits int64

	for _, share := range plan.Shares {
		units, err := c.liquidity.ConvertFiat(share.FiatValue)
		if err != nil {
			return nil, nil, err
		}
		legs = append(legs, ledger.SettlementLeg{
			UserID:      share.UserID,
			Tokens:      share.Tokens,
			PayoutUnits: units,
		})
		fiatDisbursed += share.FiatValue
		payoutUnits += units
	}

	// External execution, two phases: payout transfers per leg, then
	// one burn of the full distributed amount from the custody pool. A
	// failure claws back every payout already made, so a failed
	// fulfillment leaves no partial external effects and a resubmission
	// starts from scratch.
	if !c.replaying {
		for i, leg := range legs {
			if leg.PayoutUnits == 0 {
				continue
			}
			if err := c.transfers.PayoutTransfer(holder, leg.UserID, leg.PayoutUnits); err != nil {
				c.reversePayouts(holder, legs[:i])
				return nil, nil, fmt.Errorf("%w: payout to %s: %v", ErrTransferFailure, leg.UserID, err)
			}
		}
		if err := c.transfers.Burn(plan.Distributed, holder); err != nil {
			c.reversePayouts(holder, legs)
			return nil, nil, fmt.Errorf("%w: burn %d: %v", ErrTransferFailure, plan.Distributed, err)
		}
	}

	// Internal mutation: decrement pendings now that every external
	// call has succeeded.
	for _, leg := range legs {
		if err := c.queue.ReducePending(evt.Batch, leg.UserID, leg.Tokens); err != nil {
			panic(fmt.Sprintf("FATAL: reduce pending after plan: %v", err))
		}
	}

	batch, err := c.journalGen.GenerateSettlement(
		evt.FulfillmentID, legs, c.tokenAsset, c.payoutAsset, evt.Timestamp.UnixMicro())
	if err != nil {
		return nil, nil, err
	}

	settlement := &event.SettlementExecuted{
		FulfillmentID: evt.FulfillmentID,
		Batch:         evt.Batch,
		TokensSettled: plan.Distributed,
		FiatDisbursed: fiatDisbursed,
		PayoutUnits:   payoutUnits,
		FullyClosed:   b.PendingTotal == 0,
		Timestamp:     evt.Timestamp,
	}

	if c.metrics != nil {
		mode := "partial"
		if settlement.FullyClosed {
			mode = "full"
		}
		c.metrics.SettlementsExecuted.WithLabelValues(mode).Inc()
		c.metrics.TokensSettled.Add(float64(plan.Distributed))
		c.metrics.SettlementResidual.Set(float64(plan.Residual))
	}

	return batch, settlement, nil
}

// reversePayouts returns payout transfers already executed within a
// fulfillment whose later leg failed. The recipients were credited
// moments ago in this same command, so the funds are there to return;
// a failing reversal means the external ledger is inconsistent beyond
// what the core can repair.
func (c *SettlementCore) reversePayouts(holder uuid.UUID, legs []ledger.SettlementLeg) {
	for _, leg := range legs {
		if leg.PayoutUnits == 0 {
			continue
		}
		if err := c.transfers.PayoutTransfer(leg.UserID, holder, leg.PayoutUnits); err != nil {
			panic(fmt.Sprintf("FATAL: payout reversal for %s: %v", leg.UserID, err))
		}
	}
}

// participantPendings collects a batch's live pendings in insertion order.
func (c *SettlementCore) participantPendings(b *state.Batch) []fpmath.ParticipantPending {
	out := make([]fpmath.ParticipantPending, 0, len(b.Participants))
	for _, userID := range b.Participants {
		req := c.queue.GetRequest(b.Index, userID)
		if req == nil || req.Pending <= 0 {
			continue
		}
		out = append(out, fpmath.ParticipantPending{UserID: userID, Pending: req.Pending})
	}
	return out
}

func (c *SettlementCore) emptyJournalBatch(eventRef string, timestamp int64) *ledger.JournalBatch {
	return &ledger.JournalBatch{
		BatchID:   uuid.New(),
		EventRef:  eventRef,
		Sequence:  c.sequence,
		Timestamp: timestamp,
		Journals:  []ledger.Journal{},
	}
}

// resolveBatchIndex fills in the batch index for commands that target
// an implicit batch: a new request lands in the open batch, an open
// command allocated tail-1. Resolved post-apply so replay and live
// processing agree.
func (c *SettlementCore) resolveBatchIndex(evt event.Event) *int64 {
	if idx := evt.BatchIndex(); idx != nil {
		return idx
	}
	switch evt.EventType() {
	case event.EventTypeBatchOpened:
		idx := c.queue.Tail() - 1
		return &idx
	case event.EventTypeRedemptionRequested:
		if c.queue.HasOpenBatch() {
			idx := c.queue.OpenIndex()
			return &idx
		}
	}
	return nil
}

// getEventTimestamp extracts the versioned timestamp from a command.
// The core never calls time.Now() — all timestamps are inputs.
func (c *SettlementCore) getEventTimestamp(evt event.Event) time.Time {
	switch e := evt.(type) {
	case *event.BatchOpened:
		return e.Timestamp
	case *event.RedemptionRequested:
		return e.Timestamp
	case *event.RedemptionCancelled:
		return e.Timestamp
	case *event.FulfillBatch:
		return e.Timestamp
	default:
		panic(fmt.Sprintf("FATAL: getEventTimestamp called with unhandled event type %T", evt))
	}
}

// computeStateDigest creates canonical bytes for the state hash:
// affected account balances in sorted path order, then the queue
// frontier and the affected batch pending totals.
func (c *SettlementCore) computeStateDigest(batch *ledger.JournalBatch) []byte {
	affectedAccounts := make(map[ledger.AccountKey]bool)

	if batch != nil {
		for _, j := range batch.Journals {
			affectedAccounts[j.DebitAccount] = true
			affectedAccounts[j.CreditAccount] = true
		}
	}

	accounts := make([]ledger.AccountKey, 0, len(affectedAccounts))
	for key := range affectedAccounts {
		accounts = append(accounts, key)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64+32)

	for _, key := range accounts {
		balance := c.balances.GetBalance(key)

		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, balance)
	}

	digest = appendInt64LE(digest, c.queue.Head())
	digest = appendInt64LE(digest, c.queue.Tail())

	for i := c.queue.Head(); i < c.queue.Tail(); i++ {
		digest = appendInt64LE(digest, c.queue.PendingTotalOf(i))
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates queue and ledger invariants after a
// command has been applied.
func (c *SettlementCore) postCheckInvariants(evt event.Event) error {
	// Frontier ordering
	if c.queue.Head() > c.queue.Tail() {
		return fmt.Errorf("frontier inversion: head=%d > tail=%d", c.queue.Head(), c.queue.Tail())
	}

	// Every settled batch below the frontier stays drained
	for i := int64(0); i < c.queue.Head(); i++ {
		if total := c.queue.PendingTotalOf(i); total != 0 {
			return fmt.Errorf("settled batch %d has non-zero pending total %d", i, total)
		}
	}

	// Affected batch: pendingTotal == Σ pending, 0 <= pending <= requested
	if idx := evt.BatchIndex(); idx != nil && c.queue.GetBatch(*idx) != nil {
		if err := c.queue.CheckBatchInvariant(*idx); err != nil {
			return err
		}
	} else if c.queue.HasOpenBatch() {
		if err := c.queue.CheckBatchInvariant(c.queue.OpenIndex()); err != nil {
			return err
		}
	}

	// Escrow pool reconciles against queued pending
	if err := c.validator.ValidateTotalEscrowMatchesPending(c.tokenAsset, c.queue); err != nil {
		return err
	}

	// Zero-sum ledger
	return c.validator.ValidateGlobalBalance()
}

// --- Read-only queries (served in-process; the query service reads
// projections instead) ---

// ParticipantsOf returns a batch's participants in insertion order.
func (c *SettlementCore) ParticipantsOf(batch int64) []uuid.UUID {
	return c.queue.ParticipantsOf(batch)
}

// RequestDetails returns (requested, pending) for a request.
func (c *SettlementCore) RequestDetails(batch int64, userID uuid.UUID) (int64, int64) {
	req := c.queue.GetRequest(batch, userID)
	if req == nil {
		return 0, 0
	}
	return req.Requested, req.Pending
}

// PendingTotalOf returns a batch's pending total.
func (c *SettlementCore) PendingTotalOf(batch int64) int64 {
	return c.queue.PendingTotalOf(batch)
}

// LockedAmountOf sums the caller's pending across unsettled batches.
func (c *SettlementCore) LockedAmountOf(userID uuid.UUID) int64 {
	return c.queue.LockedAmountOf(userID)
}

// Frontier returns (head, tail).
func (c *SettlementCore) Frontier() (int64, int64) {
	return c.queue.Head(), c.queue.Tail()
}

// EscrowBalanceOf returns the tracked escrow balance for a user.
func (c *SettlementCore) EscrowBalanceOf(userID uuid.UUID) int64 {
	return c.balances.GetUserEscrowBalance(userID, c.tokenAsset)
}

// SetReplayMode toggles replay. While replaying, collaborator calls
// that move funds are skipped: the logged commands already executed
// them before they were written.
func (c *SettlementCore) SetReplayMode(on bool) {
	c.replaying = on
}

// ExpectedSourceSequence returns the next upstream sequence the queue
// partition will accept. The HTTP shell allocates from here.
func (c *SettlementCore) ExpectedSourceSequence() int64 {
	return c.sequenceValidator.GetExpectedSequence("queue")
}

// GetSequence returns the current global sequence number.
func (c *SettlementCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *SettlementCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}
