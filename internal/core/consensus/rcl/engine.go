// Package rcl implements the Ripple Consensus Ledger algorithm.
// This is the default consensus algorithm used by the XRP Ledger.
package rcl

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/coreledger/ledgerd/internal/core/consensus"
	"github.com/coreledger/ledgerd/internal/core/validations"
)

// Engine implements the RCL consensus algorithm.
type Engine struct {
	mu sync.RWMutex

	// Configuration
	timing     consensus.Timing
	thresholds consensus.Thresholds
	parms      consensus.Parms

	// Dependencies
	adaptor  consensus.Adaptor
	eventBus *consensus.EventBus

	// Current state
	mode       consensus.Mode
	phase      consensus.Phase
	state      *consensus.RoundState
	prevLedger consensus.Ledger

	// Proposal tracking
	proposalTracker *ProposalTracker
	ourTxSet        consensus.TxSet
	converged       bool

	// establishStart marks when the close timer fired and we entered the
	// establish phase; roundTime for CheckConsensus is measured from here.
	establishStart time.Time

	// prevRoundTime and prevProposerCount describe the previous round's
	// pace and participation, used as the baseline CheckConsensus measures
	// this round's participation against.
	prevRoundTime     time.Duration
	prevProposerCount int

	// Validation tracking. Backed by the shared validation store rather than
	// a bare per-round map, so a node's current validation persists (with
	// freshness and seq-monotonicity enforcement) until superseded, not just
	// until the next round clears it.
	validations *validations.Store

	// Dispute tracking
	disputeTracker *DisputeTracker

	// txByID recovers the raw bytes for a disputed transaction within the
	// current round, keyed by the intra-round content hash disputes are
	// tracked under (see txBytesID).
	txByID map[consensus.TxID][]byte

	// ourIDs is the set of txBytesID values currently in ourTxSet. Kept
	// separately rather than calling ourTxSet.Contains, since Contains
	// expects whatever ID scheme the concrete TxSet implementation uses
	// internally, which need not match our intra-round content hash.
	ourIDs map[consensus.TxID]bool

	// requestedTxSets dedupes outbound RequestTxSet calls within a round:
	// every GetTxSet call in this package runs with mu held, so the
	// requests it triggers are already serialized and only need a "have we
	// asked for this one already" check rather than a concurrency-level
	// collapse.
	requestedTxSets map[consensus.TxSetID]bool

	// Timers
	closeTimer   *time.Timer
	timeoutTimer *time.Timer

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	roundCount     uint64
	consensusCount uint64
}

// Config holds RCL engine configuration.
type Config struct {
	Timing     consensus.Timing
	Thresholds consensus.Thresholds
	Parms      consensus.Parms
}

// DefaultConfig returns the default RCL configuration.
func DefaultConfig() Config {
	return Config{
		Timing:     consensus.DefaultTiming(),
		Thresholds: consensus.DefaultThresholds(),
		Parms:      consensus.DefaultParms(),
	}
}

// NewEngine creates a new RCL consensus engine.
func NewEngine(adaptor consensus.Adaptor, config Config) *Engine {
	return &Engine{
		timing:          config.Timing,
		thresholds:      config.Thresholds,
		parms:           config.Parms,
		adaptor:         adaptor,
		eventBus:        consensus.NewEventBus(100),
		mode:            consensus.ModeObserving,
		phase:           consensus.PhaseAccepted,
		proposalTracker: NewProposalTracker(config.Timing.ProposeFreshness),
		validations:     validations.New(nil),
		disputeTracker:  NewDisputeTracker(),
		txByID:          make(map[consensus.TxID][]byte),
		ourIDs:          make(map[consensus.TxID]bool),
		requestedTxSets: make(map[consensus.TxSetID]bool),
	}
}

// requestTxSetOnce asks the adaptor to fetch id unless this round has
// already asked for it. Must be called with mu held.
func (e *Engine) requestTxSetOnce(id consensus.TxSetID) {
	if e.requestedTxSets[id] {
		return
	}
	e.requestedTxSets[id] = true
	e.adaptor.RequestTxSet(id)
}

// txBytesID derives an intra-round dispute key from a transaction's raw
// bytes. It is deliberately independent of whatever canonical transaction
// hash the ledger layer uses: the engine only needs a stable way to tell
// two transactions apart while diffing tx sets during a single round, not
// the ledger's real transaction identifier.
func txBytesID(raw []byte) consensus.TxID {
	return consensus.TxID(sha256.Sum256(raw))
}

// Start begins the consensus engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.eventBus.Start()

	// Get initial ledger state
	ledger, err := e.adaptor.GetLastClosedLedger()
	if err != nil {
		return fmt.Errorf("failed to get last closed ledger: %w", err)
	}
	e.prevLedger = ledger

	// Start the main loop
	e.wg.Add(1)
	go e.run()

	return nil
}

// Stop gracefully shuts down the consensus engine.
func (e *Engine) Stop() error {
	e.cancel()
	e.wg.Wait()
	e.eventBus.Stop()
	e.validations.Flush()
	return nil
}

// StartRound begins a new consensus round.
func (e *Engine) StartRound(round consensus.RoundID, proposing bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Determine mode
	if proposing && e.adaptor.IsValidator() && e.adaptor.GetOperatingMode() == consensus.OpModeFull {
		e.setMode(consensus.ModeProposing)
	} else {
		e.setMode(consensus.ModeObserving)
	}

	// Initialize round state
	e.state = &consensus.RoundState{
		Round:          round,
		Mode:           e.mode,
		Phase:          consensus.PhaseOpen,
		Proposals:      make(map[consensus.NodeID]*consensus.Proposal),
		Disputed:       make(map[consensus.TxID]*consensus.DisputedTx),
		CloseTimes:     consensus.CloseTimes{Peers: make(map[time.Time]int)},
		StartTime:      e.adaptor.Now(),
		PhaseStart:     e.adaptor.Now(),
		HaveCorrectLCL: true,
	}

	// Reset tracking for the new round
	e.proposalTracker.SetRound(round)
	e.proposalTracker.SetTrusted(e.adaptor.GetTrustedValidators())
	e.disputeTracker.Clear()
	e.txByID = make(map[consensus.TxID][]byte)
	e.ourIDs = make(map[consensus.TxID]bool)
	e.requestedTxSets = make(map[consensus.TxSetID]bool)
	e.converged = false
	e.ourTxSet = nil

	// Set phase
	e.setPhase(consensus.PhaseOpen)

	// Emit event
	e.eventBus.Publish(&consensus.RoundStartedEvent{
		Round:     round,
		Mode:      e.mode,
		Timestamp: e.adaptor.Now(),
	})

	// Start close timer
	e.startCloseTimer()

	e.roundCount++
	return nil
}

// OnProposal handles an incoming proposal from a peer.
func (e *Engine) OnProposal(proposal *consensus.Proposal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Verify signature
	if err := e.adaptor.VerifyProposal(proposal); err != nil {
		return fmt.Errorf("invalid proposal signature: %w", err)
	}

	// Check if from trusted validator
	trusted := e.adaptor.IsTrusted(proposal.NodeID)

	// Store the proposal if it's for the round we're tracking and newer
	// than anything we've already recorded from this node.
	e.proposalTracker.Add(proposal, e.adaptor.Now())

	// Emit event
	e.eventBus.Publish(&consensus.ProposalReceivedEvent{
		Proposal:  proposal,
		Trusted:   trusted,
		Timestamp: e.adaptor.Now(),
	})

	// Relay to other peers
	if trusted {
		e.adaptor.RelayProposal(proposal)
	}

	// Check if we need the transaction set
	if _, err := e.adaptor.GetTxSet(proposal.TxSet); err != nil {
		e.requestTxSetOnce(proposal.TxSet)
	}

	// If in establish phase, check for convergence
	if e.phase == consensus.PhaseEstablish {
		e.checkConvergence()
	}

	return nil
}

// OnValidation handles an incoming validation from a peer.
func (e *Engine) OnValidation(validation *consensus.Validation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Verify signature
	if err := e.adaptor.VerifyValidation(validation); err != nil {
		return fmt.Errorf("invalid validation signature: %w", err)
	}

	// Check if from trusted validator
	trusted := e.adaptor.IsTrusted(validation.NodeID)

	// Store validation; stale or out-of-sequence validations are dropped
	// without disturbing the node's existing current validation.
	e.validations.Add(e.adaptor.Now(), validation.NodeID, validation, trusted)

	// Emit event
	e.eventBus.Publish(&consensus.ValidationReceivedEvent{
		Validation: validation,
		Trusted:    trusted,
		Timestamp:  e.adaptor.Now(),
	})

	return nil
}

// OnTxSet handles receiving a transaction set we requested.
func (e *Engine) OnTxSet(id consensus.TxSetID, txs [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Build and store the transaction set
	txSet, err := e.adaptor.BuildTxSet(txs)
	if err != nil {
		return fmt.Errorf("failed to build tx set: %w", err)
	}

	// Verify the ID matches
	if txSet.ID() != id {
		return fmt.Errorf("tx set ID mismatch: expected %x, got %x", id, txSet.ID())
	}

	// If in establish phase, check for convergence
	if e.phase == consensus.PhaseEstablish {
		e.checkConvergence()
	}

	return nil
}

// OnLedger handles receiving a ledger we were missing.
func (e *Engine) OnLedger(id consensus.LedgerID, ledger []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// If we were on wrong ledger, check if this helps
	if e.mode == consensus.ModeWrongLedger {
		// Try to get the ledger
		l, err := e.adaptor.GetLedger(id)
		if err == nil && l != nil {
			e.prevLedger = l
			e.state.HaveCorrectLCL = true
			e.setMode(consensus.ModeSwitchedLedger)
		}
	}

	return nil
}

// State returns the current consensus state.
func (e *Engine) State() *consensus.RoundState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Mode returns the current operating mode.
func (e *Engine) Mode() consensus.Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Phase returns the current consensus phase.
func (e *Engine) Phase() consensus.Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// IsProposing returns true if we're actively proposing.
func (e *Engine) IsProposing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode == consensus.ModeProposing
}

// Timing returns the consensus timing parameters.
func (e *Engine) Timing() consensus.Timing {
	return e.timing
}

// Subscribe adds an event subscriber.
func (e *Engine) Subscribe(sub consensus.EventSubscriber) {
	e.eventBus.Subscribe(sub)
}

// Events returns the event channel for direct consumption.
func (e *Engine) Events() <-chan consensus.Event {
	return e.eventBus.Events()
}

// run is the main consensus loop.
func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		default:
			// Check operating mode
			if e.adaptor.GetOperatingMode() == consensus.OpModeFull {
				e.checkAndStartRound()
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// checkAndStartRound checks if we should start a new round.
func (e *Engine) checkAndStartRound() {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Only start if in accepted phase
	if e.phase != consensus.PhaseAccepted {
		return
	}

	// Get current ledger
	ledger, err := e.adaptor.GetLastClosedLedger()
	if err != nil {
		return
	}

	// Check if it's time for a new round
	timeSinceClose := e.adaptor.Now().Sub(ledger.CloseTime())
	if timeSinceClose < e.timing.LedgerIdleInterval {
		return
	}

	// Determine if we should propose
	proposing := e.adaptor.IsValidator() && e.adaptor.GetOperatingMode() == consensus.OpModeFull

	// Start the round
	round := consensus.RoundID{
		Seq:        ledger.Seq() + 1,
		ParentHash: ledger.ID(),
	}

	// Release lock before calling StartRound (it re-acquires)
	e.mu.Unlock()
	e.StartRound(round, proposing)
	e.mu.Lock()
}

// setMode changes the consensus mode.
func (e *Engine) setMode(newMode consensus.Mode) {
	if e.mode == newMode {
		return
	}

	oldMode := e.mode
	e.mode = newMode

	e.eventBus.Publish(&consensus.ModeChangedEvent{
		OldMode:   oldMode,
		NewMode:   newMode,
		Timestamp: e.adaptor.Now(),
	})

	e.adaptor.OnModeChange(oldMode, newMode)
}

// setPhase changes the consensus phase.
func (e *Engine) setPhase(newPhase consensus.Phase) {
	if e.phase == newPhase {
		return
	}

	oldPhase := e.phase
	e.phase = newPhase
	if e.state != nil {
		e.state.Phase = newPhase
		e.state.PhaseStart = e.adaptor.Now()
	}

	e.eventBus.Publish(&consensus.PhaseChangedEvent{
		Round:     e.state.Round,
		OldPhase:  oldPhase,
		NewPhase:  newPhase,
		Timestamp: e.adaptor.Now(),
	})

	e.adaptor.OnPhaseChange(oldPhase, newPhase)
}

// startCloseTimer starts the timer for closing the ledger.
func (e *Engine) startCloseTimer() {
	if e.closeTimer != nil {
		e.closeTimer.Stop()
	}

	e.closeTimer = time.AfterFunc(e.timing.LedgerMinClose, func() {
		e.onCloseTimer()
	})
}

// onCloseTimer handles the close timer firing.
func (e *Engine) onCloseTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != consensus.PhaseOpen {
		return
	}

	e.eventBus.Publish(&consensus.TimerFiredEvent{
		Timer:     consensus.TimerLedgerClose,
		Round:     e.state.Round,
		Timestamp: e.adaptor.Now(),
	})

	// Close the ledger and move to establish phase
	e.closeLedger()
}

// closeLedger transitions from open to establish phase.
func (e *Engine) closeLedger() {
	// Build our transaction set from pending transactions
	txs := e.adaptor.GetPendingTxs()
	txSet, err := e.adaptor.BuildTxSet(txs)
	if err != nil {
		// TODO: handle error
		return
	}
	e.ourTxSet = txSet

	// Calculate close time
	closeTime := e.roundCloseTime()
	e.state.CloseTimes.Self = closeTime

	// If proposing, create and broadcast our proposal
	if e.mode == consensus.ModeProposing {
		nodeID, err := e.adaptor.GetValidatorKey()
		if err == nil {
			proposal := &consensus.Proposal{
				Round:          e.state.Round,
				NodeID:         nodeID,
				Position:       0,
				TxSet:          txSet.ID(),
				CloseTime:      closeTime,
				PreviousLedger: e.prevLedger.ID(),
				Timestamp:      e.adaptor.Now(),
			}

			if err := e.adaptor.SignProposal(proposal); err == nil {
				e.state.OurPosition = proposal
				e.adaptor.BroadcastProposal(proposal)
			}
		}
	}

	// Move to establish phase
	e.establishStart = e.adaptor.Now()
	e.setPhase(consensus.PhaseEstablish)

	// Start timeout timer
	e.startTimeoutTimer()
}

// roundCloseTime calculates the close time for this round.
func (e *Engine) roundCloseTime() time.Time {
	now := e.adaptor.Now()
	resolution := e.adaptor.CloseTimeResolution()

	// Round to the nearest resolution
	rounded := now.Truncate(resolution)
	if now.Sub(rounded) > resolution/2 {
		rounded = rounded.Add(resolution)
	}

	return rounded
}

// startTimeoutTimer starts the timeout timer for the establish phase.
func (e *Engine) startTimeoutTimer() {
	if e.timeoutTimer != nil {
		e.timeoutTimer.Stop()
	}

	e.timeoutTimer = time.AfterFunc(e.timing.LedgerMaxClose, func() {
		e.onTimeoutTimer()
	})
}

// onTimeoutTimer handles the timeout timer firing.
func (e *Engine) onTimeoutTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != consensus.PhaseEstablish {
		return
	}

	e.eventBus.Publish(&consensus.TimerFiredEvent{
		Timer:     consensus.TimerRoundTimeout,
		Round:     e.state.Round,
		Timestamp: e.adaptor.Now(),
	})

	// Force consensus with what we have
	e.acceptLedger(consensus.ResultTimeout)
}

// checkConvergence re-evaluates consensus progress against the current set
// of trusted proposals. It rebuilds the dispute list from scratch each time
// it runs (see rebuildDisputes) and asks consensus.CheckConsensus whether
// the round should keep negotiating, has moved on, has expired, or has
// reached Yes.
func (e *Engine) checkConvergence() {
	if e.phase != consensus.PhaseEstablish {
		return
	}

	// Nodes that have gone quiet for longer than the propose-freshness
	// window no longer count toward this round's proposer tally, the same
	// way a peer that disconnects mid-round stops being counted.
	e.proposalTracker.PruneStale(e.adaptor.Now())

	e.rebuildDisputes()

	currentProposers := e.proposalTracker.TrustedCount()
	_, bestCount := e.proposalTracker.GetWinningTxSet()
	roundTime := e.adaptor.Now().Sub(e.establishStart)

	state := consensus.CheckConsensus(
		e.prevProposerCount,
		currentProposers,
		bestCount,
		0, // peers moving on to a different ledger isn't observable here
		e.prevRoundTime,
		roundTime,
		e.parms.MinConsensusPct,
		e.parms.LedgerMinConsensus,
		e.parms.LedgerMaxConsensus,
	)

	switch state {
	case consensus.ConsensusStateYes:
		e.converged = true
		if e.state != nil {
			e.state.Converged = true
		}
		e.adoptWinningTxSet()
		e.acceptLedger(consensus.ResultSuccess)
		return
	case consensus.ConsensusStateExpired:
		e.adoptWinningTxSet()
		e.acceptLedger(consensus.ResultTimeout)
		return
	case consensus.ConsensusStateMovedOn:
		e.adoptWinningTxSet()
		e.acceptLedger(consensus.ResultMovedOn)
		return
	}

	e.converged = false
	if e.state != nil {
		e.state.Converged = false
	}

	if e.mode == consensus.ModeProposing && e.state.OurPosition != nil {
		e.updateOurPosition(roundTime)
	}
}

// adoptWinningTxSet fetches the tx set with the most trusted support if we
// don't already hold it, requesting it from the adaptor when it isn't
// locally available yet.
func (e *Engine) adoptWinningTxSet() {
	winningID, count := e.proposalTracker.GetWinningTxSet()
	if count == 0 {
		return
	}
	if e.ourTxSet != nil && e.ourTxSet.ID() == winningID {
		return
	}

	txSet, err := e.adaptor.GetTxSet(winningID)
	if err != nil || txSet == nil {
		e.requestTxSetOnce(winningID)
		return
	}
	e.ourTxSet = txSet
}

// rebuildDisputes recomputes the disputed transaction set from scratch each
// time it runs, rather than accumulating votes incrementally, since
// DisputeTracker has no per-node vote history to retract a stale vote from.
// A transaction is disputed when it's present in our position or a trusted
// peer's tx set but not unanimous across all of them.
func (e *Engine) rebuildDisputes() {
	e.disputeTracker.Clear()

	if e.ourTxSet == nil {
		e.txByID = make(map[consensus.TxID][]byte)
		e.ourIDs = make(map[consensus.TxID]bool)
		return
	}

	ourIDs := make(map[consensus.TxID]bool)
	txByID := make(map[consensus.TxID][]byte)
	for _, raw := range e.ourTxSet.Txs() {
		id := txBytesID(raw)
		ourIDs[id] = true
		txByID[id] = raw
	}

	peerSets := make(map[consensus.NodeID]map[consensus.TxID]bool)
	for _, p := range e.proposalTracker.GetTrusted() {
		txSet, err := e.adaptor.GetTxSet(p.TxSet)
		if err != nil || txSet == nil {
			continue
		}
		ids := make(map[consensus.TxID]bool)
		for _, raw := range txSet.Txs() {
			id := txBytesID(raw)
			ids[id] = true
			if _, have := txByID[id]; !have {
				txByID[id] = raw
			}
		}
		peerSets[p.NodeID] = ids
	}

	allIDs := make(map[consensus.TxID]bool, len(ourIDs))
	for id := range ourIDs {
		allIDs[id] = true
	}
	for _, ids := range peerSets {
		for id := range ids {
			allIDs[id] = true
		}
	}

	for id := range allIDs {
		ourVote := ourIDs[id]
		unanimous := true
		for _, ids := range peerSets {
			if ids[id] != ourVote {
				unanimous = false
				break
			}
		}
		if unanimous {
			continue
		}

		e.disputeTracker.CreateDispute(id, txByID[id], ourVote)
		for _, ids := range peerSets {
			e.disputeTracker.AddVote(id, ids[id])
		}
	}

	e.txByID = txByID
	e.ourIDs = ourIDs
}

// updateOurPosition applies the escalating yes-vote threshold for the
// current round pace to every disputed transaction and, if our position
// changes as a result, signs and broadcasts the new proposal.
func (e *Engine) updateOurPosition(roundTime time.Duration) {
	denom := e.prevRoundTime
	if denom < e.parms.AvMinConsensusTime {
		denom = e.parms.AvMinConsensusTime
	}
	convergePercent := int(roundTime * 100 / denom)

	threshold := e.parms.AvInitConsensusPct
	switch {
	case convergePercent >= e.parms.AvStuckConsensusTime:
		threshold = e.parms.AvStuckConsensusPct
	case convergePercent >= e.parms.AvLateConsensusTime:
		threshold = e.parms.AvLateConsensusPct
	case convergePercent >= e.parms.AvMidConsensusTime:
		threshold = e.parms.AvMidConsensusPct
	}

	include, exclude := e.disputeTracker.Resolve(float64(threshold) / 100)

	changed := false
	for _, id := range include {
		if e.ourIDs[id] {
			continue
		}
		raw, ok := e.txByID[id]
		if !ok {
			continue
		}
		if err := e.ourTxSet.Add(raw); err == nil {
			e.ourIDs[id] = true
			changed = true
		}
	}
	for _, id := range exclude {
		if !e.ourIDs[id] {
			continue
		}
		if err := e.ourTxSet.Remove(id); err == nil {
			delete(e.ourIDs, id)
			changed = true
		}
	}

	if !changed {
		return
	}

	nodeID, err := e.adaptor.GetValidatorKey()
	if err != nil {
		return
	}

	proposal := &consensus.Proposal{
		Round:          e.state.Round,
		NodeID:         nodeID,
		Position:       e.state.OurPosition.Position + 1,
		TxSet:          e.ourTxSet.ID(),
		CloseTime:      e.state.OurPosition.CloseTime,
		PreviousLedger: e.prevLedger.ID(),
		Timestamp:      e.adaptor.Now(),
	}

	if err := e.adaptor.SignProposal(proposal); err == nil {
		e.state.OurPosition = proposal
		e.adaptor.BroadcastProposal(proposal)
	}
}

// acceptLedger finalizes consensus and accepts the new ledger.
func (e *Engine) acceptLedger(result consensus.Result) {
	if e.phase != consensus.PhaseEstablish {
		return
	}

	// Determine winning close time
	closeTime := e.determineCloseTime()

	// Get the agreed transaction set
	var txSet consensus.TxSet
	if e.ourTxSet != nil {
		txSet = e.ourTxSet
	} else {
		bestID, _ := e.proposalTracker.GetWinningTxSet()

		var err error
		txSet, err = e.adaptor.GetTxSet(bestID)
		if err != nil {
			return
		}
	}

	// Build the new ledger
	newLedger, err := e.adaptor.BuildLedger(e.prevLedger, txSet, closeTime)
	if err != nil {
		return
	}

	// Validate and store
	if err := e.adaptor.ValidateLedger(newLedger); err != nil {
		return
	}

	if err := e.adaptor.StoreLedger(newLedger); err != nil {
		return
	}

	// Emit consensus reached event
	e.eventBus.Publish(&consensus.ConsensusReachedEvent{
		Round:     e.state.Round,
		TxSet:     txSet.ID(),
		CloseTime: closeTime,
		Proposers: e.proposalTracker.TrustedCount(),
		Result:    result,
		Duration:  e.adaptor.Now().Sub(e.state.StartTime),
		Timestamp: e.adaptor.Now(),
	})

	// If validator, send validation
	if e.adaptor.IsValidator() {
		e.sendValidation(newLedger)
	}

	// Collect the trusted validations currently supporting the new ledger.
	supportingValidations := e.validations.GetTrustedForLedger(newLedger.ID())

	// Notify adaptor
	e.adaptor.OnConsensusReached(newLedger, supportingValidations)

	// Emit ledger accepted event
	e.eventBus.Publish(&consensus.LedgerAcceptedEvent{
		LedgerID:    newLedger.ID(),
		LedgerSeq:   newLedger.Seq(),
		TxCount:     txSet.Size(),
		CloseTime:   closeTime,
		Validations: len(supportingValidations),
		Timestamp:   e.adaptor.Now(),
	})

	// Update state for next round, recording this round's pace and
	// participation as the baseline for the next round's CheckConsensus call.
	e.prevLedger = newLedger
	e.prevRoundTime = e.adaptor.Now().Sub(e.establishStart)
	e.prevProposerCount = e.proposalTracker.TrustedCount()
	e.validations.Expire(e.adaptor.Now())
	e.consensusCount++

	// Move to accepted phase
	e.setPhase(consensus.PhaseAccepted)
}

// determineCloseTime determines the consensus close time.
func (e *Engine) determineCloseTime() time.Time {
	// Collect close times from trusted proposals
	for _, proposal := range e.proposalTracker.GetTrusted() {
		e.state.CloseTimes.Peers[proposal.CloseTime]++
	}

	// Find most popular close time
	var bestTime time.Time
	bestCount := 0
	for t, count := range e.state.CloseTimes.Peers {
		if count > bestCount {
			bestTime = t
			bestCount = count
		}
	}

	// If no consensus on time, use our time
	if bestCount == 0 {
		return e.state.CloseTimes.Self
	}

	return bestTime
}

// sendValidation creates and broadcasts a validation.
func (e *Engine) sendValidation(ledger consensus.Ledger) {
	nodeID, err := e.adaptor.GetValidatorKey()
	if err != nil {
		return
	}

	validation := &consensus.Validation{
		LedgerID:  ledger.ID(),
		LedgerSeq: ledger.Seq(),
		NodeID:    nodeID,
		SignTime:  e.adaptor.Now(),
		SeenTime:  e.adaptor.Now(),
	}

	if err := e.adaptor.SignValidation(validation); err != nil {
		return
	}

	e.adaptor.BroadcastValidation(validation)
}
