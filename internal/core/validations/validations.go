// Package validations implements the append-only store of signed ledger
// validations: it tracks, per trusted node, the current validation and
// derives the network's preferred ledger tip from the full set of current
// trusted validations. It is independent of any one consensus engine
// implementation, so multiple engines can share a single validation store.
package validations

import (
	"sync"
	"time"

	"github.com/coreledger/ledgerd/internal/core/consensus"
	"github.com/hashicorp/golang-lru/v2"
)

// ancestorCacheSize bounds the preferred-tip walk's ancestor-lookup cache.
// The walk repeats the same (LedgerID, seq) ancestry query across
// consecutive heights and across validations that share a branch, so a
// modestly sized cache absorbs most of the repeat traffic without pinning
// unbounded history in memory.
const ancestorCacheSize = 4096

type ancestorKey struct {
	id  consensus.LedgerID
	seq uint32
}

// Freshness windows bounding when a validation's signTime/seenTime is
// still considered current. Named after the source tokens.
const (
	CurrentEarly = 3 * time.Second
	CurrentWall  = 5 * time.Second
	CurrentLocal = 5 * time.Second
	SetExpires   = 10 * time.Minute
)

// AddStatus is the outcome of adding a validation to the store.
type AddStatus int

const (
	// AddStale means the validation's sign/seen time fell outside the
	// acceptance window; it is discarded without affecting any node's
	// current validation.
	AddStale AddStatus = iota

	// AddBadSeq means the node's SeqEnforcer rejected the validation for
	// reusing or moving backward in seq within SetExpires.
	AddBadSeq

	// AddCurrent means the validation became (or remains) the node's
	// current validation, superseding any prior one.
	AddCurrent
)

// SeqEnforcer tracks the highest sequence seen from a single node within a
// rolling expiration window, and forbids reuse or regression of seq.
type SeqEnforcer struct {
	seq       uint32
	lastSeen  time.Time
	hasSeenAt bool
}

// Advance attempts to move the enforcer to seq at time now. Returns false
// (and leaves the enforcer unchanged) if seq does not advance strictly
// within the window, unless the window has already expired, in which case
// any seq is accepted and the window restarts.
func (e *SeqEnforcer) Advance(now time.Time, seq uint32, expiry time.Duration) bool {
	if e.hasSeenAt && now.Sub(e.lastSeen) <= expiry && seq <= e.seq {
		return false
	}
	e.seq = seq
	e.lastSeen = now
	e.hasSeenAt = true
	return true
}

// nodeState is the per-node bookkeeping kept by the store.
type nodeState struct {
	enforcer SeqEnforcer
	current  *consensus.Validation
	trusted  bool
}

// Sink receives validations retired from "current" status: superseded by a
// newer one, expired, or flushed on shutdown. Implementations typically
// persist these for later audit/RPC use; the store itself keeps no history
// beyond the current validation per node.
type Sink interface {
	Receive(v *consensus.Validation)
}

// NopSink discards everything handed to it.
type NopSink struct{}

// Receive implements Sink.
func (NopSink) Receive(*consensus.Validation) {}

// Store is the append-only validation tracker: one current validation per
// trusted node, with freshness checks and a preferred-ledger walk.
type Store struct {
	mu sync.RWMutex

	byNode map[consensus.NodeID]*nodeState

	// byLedger indexes current validations by the ledger they support, for
	// numTrustedForLedger/getTrustedForLedger/fees.
	byLedger map[consensus.LedgerID]map[consensus.NodeID]*consensus.Validation

	sink Sink

	// ancestorCache memoizes GetPreferred's ancestry.AncestorAt lookups,
	// which otherwise repeat across heights of the same walk and across
	// overlapping walks when validations cluster on a few branches.
	ancestorCache *lru.Cache[ancestorKey, consensus.LedgerID]
}

// New creates an empty validation store. A nil sink discards stale/expired
// validations.
func New(sink Sink) *Store {
	if sink == nil {
		sink = NopSink{}
	}
	cache, _ := lru.New[ancestorKey, consensus.LedgerID](ancestorCacheSize)
	return &Store{
		byNode:        make(map[consensus.NodeID]*nodeState),
		byLedger:      make(map[consensus.LedgerID]map[consensus.NodeID]*consensus.Validation),
		sink:          sink,
		ancestorCache: cache,
	}
}

// cachedAncestorAt wraps ancestry.AncestorAt with the store's bounded
// memoization. Misses populate the cache; "not found" results are not
// cached, since an ancestor can become reachable once more ledger history
// arrives.
func (s *Store) cachedAncestorAt(ancestry LedgerAncestry, id consensus.LedgerID, seq uint32) (consensus.LedgerID, bool) {
	key := ancestorKey{id: id, seq: seq}
	if anc, ok := s.ancestorCache.Get(key); ok {
		return anc, true
	}
	anc, ok := ancestry.AncestorAt(id, seq)
	if ok {
		s.ancestorCache.Add(key, anc)
	}
	return anc, ok
}

// Add validates freshness and seq-monotonicity, then installs v as the
// node's current validation, retiring any prior one to the sink.
func (s *Store) Add(now time.Time, nodeID consensus.NodeID, v *consensus.Validation, trusted bool) AddStatus {
	if v.SignTime.Before(now.Add(-CurrentEarly)) || v.SignTime.After(now.Add(CurrentWall)) {
		return AddStale
	}
	if v.SeenTime.Before(now.Add(-CurrentLocal)) || v.SeenTime.After(now.Add(CurrentLocal)) {
		return AddStale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, exists := s.byNode[nodeID]
	if !exists {
		ns = &nodeState{}
		s.byNode[nodeID] = ns
	}
	ns.trusted = trusted

	if !ns.enforcer.Advance(now, v.LedgerSeq, SetExpires) {
		return AddBadSeq
	}

	if ns.current != nil {
		s.removeFromLedgerIndex(nodeID, ns.current.LedgerID)
		s.sink.Receive(ns.current)
	}

	ns.current = v
	s.addToLedgerIndex(nodeID, v)

	return AddCurrent
}

func (s *Store) addToLedgerIndex(nodeID consensus.NodeID, v *consensus.Validation) {
	m, ok := s.byLedger[v.LedgerID]
	if !ok {
		m = make(map[consensus.NodeID]*consensus.Validation)
		s.byLedger[v.LedgerID] = m
	}
	m[nodeID] = v
}

func (s *Store) removeFromLedgerIndex(nodeID consensus.NodeID, ledgerID consensus.LedgerID) {
	m, ok := s.byLedger[ledgerID]
	if !ok {
		return
	}
	delete(m, nodeID)
	if len(m) == 0 {
		delete(s.byLedger, ledgerID)
	}
}

// TrustChanged flips the trusted bit on stored validations for the given
// node sets. Nodes not mentioned are left unchanged.
func (s *Store) TrustChanged(nowTrusted, nowUntrusted []consensus.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range nowTrusted {
		if ns, ok := s.byNode[id]; ok {
			ns.trusted = true
		}
	}
	for _, id := range nowUntrusted {
		if ns, ok := s.byNode[id]; ok {
			ns.trusted = false
		}
	}
}

// Expire drops current validations whose SignTime is older than
// SetExpires relative to now, moving them to the sink.
func (s *Store) Expire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-SetExpires)
	for nodeID, ns := range s.byNode {
		if ns.current != nil && ns.current.SignTime.Before(cutoff) {
			s.removeFromLedgerIndex(nodeID, ns.current.LedgerID)
			s.sink.Receive(ns.current)
			ns.current = nil
		}
	}
}

// Flush moves every remaining current validation to the sink and clears
// the store. Intended for use on shutdown.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ns := range s.byNode {
		if ns.current != nil {
			s.sink.Receive(ns.current)
		}
	}
	s.byNode = make(map[consensus.NodeID]*nodeState)
	s.byLedger = make(map[consensus.LedgerID]map[consensus.NodeID]*consensus.Validation)
}

// CurrentTrusted returns every node's current validation, restricted to
// trusted nodes. The returned slice is an owned snapshot.
func (s *Store) CurrentTrusted() []*consensus.Validation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*consensus.Validation, 0, len(s.byNode))
	for _, ns := range s.byNode {
		if ns.trusted && ns.current != nil {
			out = append(out, ns.current)
		}
	}
	return out
}

// NumTrustedForLedger returns the number of trusted nodes currently
// validating the given ledger.
func (s *Store) NumTrustedForLedger(id consensus.LedgerID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for nodeID, v := range s.byLedger[id] {
		if ns, ok := s.byNode[nodeID]; ok && ns.trusted {
			_ = v
			n++
		}
	}
	return n
}

// GetTrustedForLedger returns the trusted validations currently supporting
// the given ledger.
func (s *Store) GetTrustedForLedger(id consensus.LedgerID) []*consensus.Validation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*consensus.Validation
	for nodeID, v := range s.byLedger[id] {
		if ns, ok := s.byNode[nodeID]; ok && ns.trusted {
			out = append(out, v)
		}
	}
	return out
}

// Fees returns the load fee (falling back to base when unset) reported by
// each trusted validator currently supporting the given ledger, one entry
// per validator; equal fees are not merged.
func (s *Store) Fees(id consensus.LedgerID, base uint32) []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uint32
	for nodeID, v := range s.byLedger[id] {
		ns, ok := s.byNode[nodeID]
		if !ok || !ns.trusted {
			continue
		}
		if v.LoadFee != 0 {
			out = append(out, v.LoadFee)
		} else {
			out = append(out, base)
		}
	}
	return out
}

// GetNodesAfter returns the number of trusted nodes whose current
// validation sits on a ledger strictly after the given one (by sequence),
// and whose ledger has `id` as an ancestor via the supplied ancestry
// oracle. If ancestry is nil, only the sequence comparison is used.
func (s *Store) GetNodesAfter(id consensus.LedgerID, seq uint32, ancestry LedgerAncestry) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, ns := range s.byNode {
		if !ns.trusted || ns.current == nil {
			continue
		}
		v := ns.current
		if v.LedgerSeq <= seq {
			continue
		}
		if ancestry != nil {
			anc, ok := s.cachedAncestorAt(ancestry, v.LedgerID, seq)
			if !ok || anc != id {
				continue
			}
		}
		count++
	}
	return count
}
