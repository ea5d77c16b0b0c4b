package txq

import (
	"strconv"

	"github.com/coreledger/ledgerd/internal/core/tx"
)

// ApplyResult represents the result of trying to apply or queue a transaction.
type ApplyResult struct {
	// Result is the transaction result code
	Result tx.Result

	// Applied is true if the transaction was applied to the open ledger
	Applied bool

	// Queued is true if the transaction was added to the queue
	Queued bool
}

// ApplyContext provides the context needed to apply a transaction.
// This decouples TxQ from the specific ledger implementation.
type ApplyContext interface {
	// GetAccountSequence returns the current sequence number for an account.
	// Returns 0 if the account doesn't exist.
	GetAccountSequence(account [20]byte) uint32

	// AccountExists returns true if the account exists in the ledger.
	AccountExists(account [20]byte) bool

	// TicketExists returns true if the ticket exists for the account.
	TicketExists(account [20]byte, ticketSeq uint32) bool

	// GetAccountBalance returns the XRP balance in drops.
	GetAccountBalance(account [20]byte) uint64

	// GetAccountReserve returns the reserve requirement for an account.
	GetAccountReserve(ownerCount uint32) uint64

	// GetBaseFee returns the base fee for a transaction.
	GetBaseFee(txn tx.Transaction) uint64

	// GetTxInLedger returns the number of transactions in the open ledger.
	GetTxInLedger() uint32

	// GetLedgerSequence returns the current ledger sequence.
	GetLedgerSequence() uint32

	// ApplyTransaction attempts to apply a transaction to the open ledger.
	// Returns the result and whether the transaction was applied.
	ApplyTransaction(txn tx.Transaction) (tx.Result, bool)
}

// Apply attempts to apply a transaction or queue it for later.
// This is the main entry point for submitting transactions.
//
// The transaction goes through these steps:
// 1. Compute its fee level and sequence or ticket (no preflight validation
//    is run; ctx.ApplyTransaction is the only check of the transaction)
// 2. Check if fee is high enough to apply directly
// 3. If not, check if it can be queued
// 4. Queue the transaction if conditions are met
//
// Returns terQUEUED if the transaction was queued, or the result of application.
func (q *TxQ) Apply(ctx ApplyContext, txn tx.Transaction, txID [32]byte, account [20]byte) ApplyResult {
	// Compute fee level
	common := txn.GetCommon()
	if common == nil {
		return ApplyResult{Result: tx.TefINTERNAL, Applied: false}
	}

	baseFee := ctx.GetBaseFee(txn)
	feePaid, _ := strconv.ParseUint(common.Fee, 10, 64)
	feeLevel := ToFeeLevelPaid(feePaid, baseFee, q.config.ZeroBasefeeTransactionFeelevel)

	// Get account info
	acctSeq := ctx.GetAccountSequence(account)
	txInLedger := ctx.GetTxInLedger()
	ledgerSeq := ctx.GetLedgerSequence()

	// Determine SeqProxy (sequence or ticket)
	var seqProxy SeqProxy
	if common.TicketSequence != nil && *common.TicketSequence != 0 {
		seqProxy = NewSeqProxyTicket(*common.TicketSequence)
	} else if common.Sequence != nil {
		seqProxy = NewSeqProxySequence(*common.Sequence)
	} else {
		// No sequence specified
		return ApplyResult{Result: tx.TefINTERNAL, Applied: false}
	}

	// Get LastLedgerSequence if set
	var lastValid uint32
	if common.LastLedgerSequence != nil {
		lastValid = *common.LastLedgerSequence
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := q.feeMetrics.GetSnapshot()
	requiredFeeLevel := ScaleFeeLevel(snapshot, txInLedger)

	// A blocker (SetRegularKey, SignerListSet) cannot coexist with other
	// queued transactions for the same account, in either direction: a new
	// blocker is refused if anything else is already queued, and a new
	// normal transaction is refused if a blocker already occupies the
	// queue. This is checked up front so it also gates the direct-apply
	// and clear-account-queue fast paths below, not just normal queueing.
	if aq, exists := q.byAccount[account]; exists && !aq.Empty() {
		_, isReplacement := aq.Transactions[seqProxy]
		newIsBlocker := computeConsequences(txn, seqProxy).IsBlocker
		for sp, c := range aq.Transactions {
			if isReplacement && sp == seqProxy {
				continue
			}
			if newIsBlocker {
				return ApplyResult{Result: tx.TelCAN_NOT_QUEUE_BLOCKS, Applied: false}
			}
			if c.Consequences.IsBlocker {
				return ApplyResult{Result: tx.TelCAN_NOT_QUEUE_BLOCKED, Applied: false}
			}
		}
	}

	// Check if fee is high enough to apply directly
	if feeLevel >= requiredFeeLevel {
		// Try to apply directly
		result, applied := ctx.ApplyTransaction(txn)
		if applied {
			// If we replaced a queued transaction, remove it
			if aq, exists := q.byAccount[account]; exists {
				if c, exists := aq.Transactions[seqProxy]; exists {
					q.erase(c)
				}
			}
			return ApplyResult{Result: result, Applied: true}
		}
		// Transaction failed to apply, may still be able to queue
		if !canBeQueued(result) {
			return ApplyResult{Result: result, Applied: false}
		}
	}

	// The series-fee-level formula below is only valid once the open
	// ledger is past its expected size (escalation has actually kicked
	// in); at or under the expected size, EscalatedSeriesFeeLevel's
	// current-1 term can underflow to a huge value and spuriously
	// overflow-reject. The original only ever calls this path under that
	// same precondition (see TxQ::apply's requiredFeeLevel > baseLevel
	// guard before attempting tryClearAccountQueue).
	if !seqProxy.IsTicket && requiredFeeLevel > FeeLevel(BaseLevel) && baseFee != 0 {
		// Either the fee alone wasn't enough, or it was but the direct
		// apply still failed with a retryable error (most commonly a
		// sequence gap left by an unapplied predecessor still sitting in
		// the queue). Either way, if this transaction's sequence
		// immediately continues an unbroken run already queued for the
		// account, paying for the whole chain at once may still clear it:
		// this is the "clear the account queue" fast path.
		if aq, exists := q.byAccount[account]; exists {
			applied, result, attempted := q.tryClearAccountQueue(ctx, aq, txn, seqProxy, feeLevel, snapshot, txInLedger)
			if applied {
				return ApplyResult{Result: result, Applied: true}
			}
			if attempted && !canBeQueued(result) {
				return ApplyResult{Result: result, Applied: false}
			}
		}
	}

	// Transaction needs to be queued
	// Check if account exists
	if !ctx.AccountExists(account) {
		return ApplyResult{Result: tx.TerNO_ACCOUNT, Applied: false}
	}

	// For ticket-based transactions, verify the ticket exists
	if seqProxy.IsTicket {
		if !ctx.TicketExists(account, seqProxy.Value) {
			if seqProxy.Value < acctSeq {
				return ApplyResult{Result: tx.TefNO_TICKET, Applied: false}
			}
			return ApplyResult{Result: tx.TerPRE_TICKET, Applied: false}
		}
	}

	// Check if LastLedgerSequence is far enough in the future
	if lastValid != 0 && lastValid < ledgerSeq+q.config.MinimumLastLedgerBuffer {
		return ApplyResult{Result: tx.TelCAN_NOT_QUEUE, Applied: false}
	}

	// Get or create account queue
	aq, exists := q.byAccount[account]

	// Check for replacement
	var replacingCandidate *Candidate
	if exists {
		if c, exists := aq.Transactions[seqProxy]; exists {
			replacingCandidate = c

			// Need higher fee to replace
			requiredRetryLevel := FeeLevel(mulDiv(uint64(c.FeeLevel), 100+uint64(q.config.RetrySequencePercent), 100))
			if feeLevel <= requiredRetryLevel {
				return ApplyResult{Result: tx.TelCAN_NOT_QUEUE_FEE, Applied: false}
			}
		}
	}

	// Check per-account limit (unless replacing)
	if replacingCandidate == nil && exists && uint32(aq.Count()) >= q.config.MaximumTxnPerAccount {
		// Check if this fills a sequence gap
		if !seqProxy.IsTicket && seqProxy.Value == acctSeq {
			// This might unblock the queue, allow it
		} else {
			return ApplyResult{Result: tx.TelCAN_NOT_QUEUE_FULL, Applied: false}
		}
	}

	// Validate sequence/ticket ordering
	if !seqProxy.IsTicket {
		if !exists || aq.Empty() {
			// First transaction for this account, must match account sequence
			if seqProxy.Value != acctSeq {
				if seqProxy.Value < acctSeq {
					return ApplyResult{Result: tx.TefPAST_SEQ, Applied: false}
				}
				return ApplyResult{Result: tx.TerPRE_SEQ, Applied: false}
			}
		} else if replacingCandidate == nil {
			// Must follow the last queued sequence
			nextSeq := q.getNextQueuableSeq(aq, acctSeq)
			if seqProxy.Value != nextSeq {
				if seqProxy.Value < nextSeq {
					return ApplyResult{Result: tx.TefPAST_SEQ, Applied: false}
				}
				return ApplyResult{Result: tx.TerPRE_SEQ, Applied: false}
			}
		}

		// Multi-txn chain premium: this entry continues a contiguous run
		// already queued for the account, so it must out-pay the run's last
		// entry by MultiTxnPercent, not merely clear the base/escalated
		// level on its own.
		if replacingCandidate == nil && exists {
			if prev := aq.GetPrevTx(seqProxy); prev != nil && prev.SeqProxy.Value == seqProxy.Value-1 {
				requiredChainLevel := FeeLevel(mulDiv(uint64(prev.FeeLevel), 100+uint64(q.config.MultiTxnPercent), 100))
				if feeLevel <= requiredChainLevel {
					return ApplyResult{Result: tx.TelINSUF_FEE_P, Applied: false}
				}
			}
		}
	}

	// Check if queue is full (when not replacing)
	if replacingCandidate == nil && q.isFull() {
		// Need to kick something out
		// Find the lowest-fee candidate from a different account
		var lowestOther *Candidate
		for i := len(q.byFee) - 1; i >= 0; i-- {
			c := q.byFee[i]
			if c.Account != account {
				lowestOther = c
				break
			}
		}

		if lowestOther == nil {
			return ApplyResult{Result: tx.TelCAN_NOT_QUEUE_FULL, Applied: false}
		}

		// Need to have a higher fee to kick it out
		if feeLevel <= lowestOther.FeeLevel {
			return ApplyResult{Result: tx.TelCAN_NOT_QUEUE_FULL, Applied: false}
		}

		// Remove the lowest fee candidate
		q.erase(lowestOther)
	}

	// Remove the candidate being replaced
	if replacingCandidate != nil {
		q.erase(replacingCandidate)
	}

	// Create and add the new candidate
	if !exists {
		aq = NewAccountQueue(account)
		q.byAccount[account] = aq
	}

	consequences := computeConsequences(txn, seqProxy)
	candidate := NewCandidate(
		txn,
		txID,
		account,
		feeLevel,
		seqProxy,
		lastValid,
		tx.TesSUCCESS, // no preflight is run; recorded as success
		consequences,
	)

	aq.Add(candidate)
	q.insertByFee(candidate)

	return ApplyResult{Result: tx.TerQUEUED, Queued: true}
}

// getNextQueuableSeq returns the next sequence number that can be queued for an account.
func (q *TxQ) getNextQueuableSeq(aq *AccountQueue, acctSeq uint32) uint32 {
	if aq == nil || aq.Empty() {
		return acctSeq
	}

	// Find the highest sequence-based transaction
	maxSeq := acctSeq
	for seqProxy, c := range aq.Transactions {
		if !seqProxy.IsTicket {
			// Use the following sequence based on consequences
			followingSeq := c.Consequences.FollowingSeq.Value
			if followingSeq > maxSeq {
				maxSeq = followingSeq
			}
		}
	}

	return maxSeq
}

// canBeQueued returns true if the result code indicates the transaction might succeed later.
func canBeQueued(result tx.Result) bool {
	// Only certain failures are worth retrying
	switch result {
	case tx.TerPRE_SEQ, tx.TerQUEUED:
		return true
	default:
		return false
	}
}

// computeConsequences determines the potential impact of a transaction.
func computeConsequences(txn tx.Transaction, seqProxy SeqProxy) TxConsequences {
	common := txn.GetCommon()
	fee, _ := strconv.ParseUint(common.Fee, 10, 64)
	cons := TxConsequences{
		Fee: fee,
	}

	// Compute following sequence
	if seqProxy.IsTicket {
		// Tickets don't advance sequence
		cons.FollowingSeq = seqProxy
	} else {
		nextSeq := seqProxy.Value + 1
		// TODO: Handle TicketCreate which advances by ticket count
		cons.FollowingSeq = NewSeqProxySequence(nextSeq)
	}

	// Check if this is a blocker transaction
	cons.IsBlocker = txn.TxType().IsBlocker()

	// Compute potential spend
	if p, ok := txn.(*tx.Payment); ok {
		cons.PotentialSpend = p.DestinationDrops
	}

	return cons
}

// tryClearAccountQueue attempts to clear an account's entire run of queued,
// sequence-ordered transactions in one shot by applying them in order
// followed by the incoming transaction, provided the combined fee paid
// meets the escalated requirement for a chain of that length. It requires
// the account's queued sequence transactions to run without a gap from the
// lowest queued sequence up to the one just before the new transaction's.
//
// Returns (applied, result, attempted): attempted is false when the chain
// shape doesn't qualify for the fast path at all (caller falls through to
// normal queueing), distinguishing that from a qualifying attempt that
// failed with a real result code.
func (q *TxQ) tryClearAccountQueue(
	ctx ApplyContext,
	aq *AccountQueue,
	txn tx.Transaction,
	seqProxy SeqProxy,
	feeLevel FeeLevel,
	snapshot Snapshot,
	txInLedger uint32,
) (applied bool, result tx.Result, attempted bool) {
	first := aq.GetFirstSeqTx()
	if first == nil {
		return false, tx.Result(0), false
	}

	seriesSize := seqProxy.Value - first.SeqProxy.Value + 1
	if seriesSize < 2 || seriesSize > uint32(q.config.MaximumTxnPerAccount)+1 {
		return false, tx.Result(0), false
	}

	sorted := aq.GetSortedCandidates()
	chain := make([]*Candidate, 0, seriesSize)
	expectedSeq := first.SeqProxy.Value
	for _, c := range sorted {
		if c.SeqProxy.IsTicket {
			continue
		}
		if c.SeqProxy.Value != expectedSeq {
			return false, tx.Result(0), false
		}
		chain = append(chain, c)
		expectedSeq++
	}
	if expectedSeq != seqProxy.Value {
		return false, tx.Result(0), false
	}

	required, ok := EscalatedSeriesFeeLevel(snapshot, txInLedger, 0, uint32(len(chain))+1)
	if !ok {
		return false, tx.TelINSUF_FEE_P, true
	}

	total := feeLevel
	for _, c := range chain {
		total += c.FeeLevel
	}
	if total < required {
		return false, tx.TelINSUF_FEE_P, true
	}

	for _, c := range chain {
		res, ok := ctx.ApplyTransaction(c.Txn)
		c.RetriesRemaining--
		c.LastResult = res
		if !ok {
			return false, res, true
		}
	}

	res, ok := ctx.ApplyTransaction(txn)
	if !ok {
		return false, res, true
	}

	for _, c := range chain {
		q.erase(c)
	}

	return true, res, true
}

// parseDrops parses a drops string to uint64.
func parseDrops(s string) uint64 {
	var drops uint64
	for _, c := range s {
		if c >= '0' && c <= '9' {
			drops = drops*10 + uint64(c-'0')
		}
	}
	return drops
}
