package node

import (
	"fmt"
	"sync"
	"time"

	"github.com/coreledger/ledgerd/internal/core/consensus"
)

// Standalone is a single-validator consensus.Adaptor: it trusts only itself,
// requires no quorum beyond its own vote, and keeps the ledger chain and
// pending transaction pool in memory. It lets the consensus engine run its
// full round lifecycle (propose, establish, accept, validate) without a
// network, giving the command-line binary something real to drive.
type Standalone struct {
	mu sync.Mutex

	nodeID consensus.NodeID

	ledgers map[consensus.LedgerID]consensus.Ledger
	txSets  map[consensus.TxSetID]consensus.TxSet
	lastLCL consensus.Ledger

	pending [][]byte

	opMode OperatingModeHolder

	closeResolution time.Duration
	now             func() time.Time

	onLedgerClosed func(ledger consensus.Ledger, validations int)
}

// OperatingModeHolder guards OperatingMode behind the same mutex as the rest
// of Standalone's state, so SetOperatingMode/GetOperatingMode races are
// impossible even though they're called from the engine's own goroutine.
type OperatingModeHolder struct {
	mode consensus.OperatingMode
}

// NewStandalone creates a single-validator adaptor seeded with the genesis
// ledger. onLedgerClosed, if non-nil, is called each time a round accepts a
// new ledger.
func NewStandalone(nodeID consensus.NodeID, onLedgerClosed func(consensus.Ledger, int)) *Standalone {
	genesis := newGenesisLedger()
	return &Standalone{
		nodeID:          nodeID,
		ledgers:         map[consensus.LedgerID]consensus.Ledger{genesis.ID(): genesis},
		txSets:          map[consensus.TxSetID]consensus.TxSet{},
		lastLCL:         genesis,
		opMode:          OperatingModeHolder{mode: consensus.OpModeFull},
		closeResolution: 10 * time.Second,
		now:             time.Now,
		onLedgerClosed:  onLedgerClosed,
	}
}

// Submit queues a raw transaction for inclusion in a future ledger.
func (s *Standalone) Submit(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, raw)
}

// --- Network operations. A standalone node has no peers, so broadcasts and
// requests are no-ops; everything needed is already local. ---

func (s *Standalone) BroadcastProposal(*consensus.Proposal) error     { return nil }
func (s *Standalone) BroadcastValidation(*consensus.Validation) error { return nil }
func (s *Standalone) RelayProposal(*consensus.Proposal) error         { return nil }
func (s *Standalone) RequestTxSet(consensus.TxSetID) error            { return nil }
func (s *Standalone) RequestLedger(consensus.LedgerID) error          { return nil }

// --- Ledger operations ---

func (s *Standalone) GetLedger(id consensus.LedgerID) (consensus.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[id]
	if !ok {
		return nil, fmt.Errorf("ledger %x not found", id)
	}
	return l, nil
}

func (s *Standalone) GetLastClosedLedger() (consensus.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLCL, nil
}

func (s *Standalone) BuildLedger(parent consensus.Ledger, txSet consensus.TxSet, closeTime time.Time) (consensus.Ledger, error) {
	seq := parent.Seq() + 1
	id := deriveLedgerID(parent.ID(), seq, txSet.ID(), closeTime)
	return &memLedger{
		id:        id,
		seq:       seq,
		parentID:  parent.ID(),
		closeTime: closeTime,
		txSetID:   txSet.ID(),
		txs:       txSet.Txs(),
	}, nil
}

func (s *Standalone) ValidateLedger(consensus.Ledger) error { return nil }

func (s *Standalone) StoreLedger(ledger consensus.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[ledger.ID()] = ledger
	s.lastLCL = ledger
	return nil
}

// --- Transaction operations ---

func (s *Standalone) GetPendingTxs() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.pending))
	copy(out, s.pending)
	return out
}

func (s *Standalone) GetTxSet(id consensus.TxSetID) (consensus.TxSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.txSets[id]
	if !ok {
		return nil, fmt.Errorf("tx set %x not found", id)
	}
	return ts, nil
}

func (s *Standalone) BuildTxSet(txs [][]byte) (consensus.TxSet, error) {
	ts := newTxSet(txs)
	s.mu.Lock()
	s.txSets[ts.ID()] = ts
	s.mu.Unlock()
	return ts, nil
}

func (s *Standalone) HasTx(id consensus.TxID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range s.pending {
		if txID(raw) == id {
			return true
		}
	}
	return false
}

func (s *Standalone) GetTx(id consensus.TxID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range s.pending {
		if txID(raw) == id {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("tx %x not found", id)
}

// --- Validator operations. Signing and verification are stubbed: a real
// node would delegate these to a key management and signature-scheme
// collaborator, out of scope here. ---

func (s *Standalone) IsValidator() bool { return true }

func (s *Standalone) GetValidatorKey() (consensus.NodeID, error) { return s.nodeID, nil }

func (s *Standalone) SignProposal(*consensus.Proposal) error       { return nil }
func (s *Standalone) SignValidation(*consensus.Validation) error   { return nil }
func (s *Standalone) VerifyProposal(*consensus.Proposal) error     { return nil }
func (s *Standalone) VerifyValidation(*consensus.Validation) error { return nil }

// --- Trust operations. Single-validator: we are our own (and only) UNL. ---

func (s *Standalone) IsTrusted(node consensus.NodeID) bool { return node == s.nodeID }

func (s *Standalone) GetTrustedValidators() []consensus.NodeID {
	return []consensus.NodeID{s.nodeID}
}

func (s *Standalone) GetQuorum() int { return 1 }

// --- Time operations ---

func (s *Standalone) Now() time.Time { return s.now() }

func (s *Standalone) CloseTimeResolution() time.Duration { return s.closeResolution }

// --- Status operations ---

func (s *Standalone) GetOperatingMode() consensus.OperatingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opMode.mode
}

func (s *Standalone) SetOperatingMode(mode consensus.OperatingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opMode.mode = mode
}

func (s *Standalone) OnConsensusReached(ledger consensus.Ledger, validations []*consensus.Validation) {
	s.mu.Lock()
	// Consumed transactions leave the pending pool.
	included := make(map[consensus.TxID]bool, len(ledger.(*memLedger).txs))
	for _, raw := range ledger.(*memLedger).txs {
		included[txID(raw)] = true
	}
	remaining := s.pending[:0]
	for _, raw := range s.pending {
		if !included[txID(raw)] {
			remaining = append(remaining, raw)
		}
	}
	s.pending = remaining
	cb := s.onLedgerClosed
	s.mu.Unlock()

	if cb != nil {
		cb(ledger, len(validations))
	}
}

func (s *Standalone) OnModeChange(consensus.Mode, consensus.Mode)   {}
func (s *Standalone) OnPhaseChange(consensus.Phase, consensus.Phase) {}
