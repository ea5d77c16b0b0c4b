package validations

import (
	"testing"
	"time"

	"github.com/coreledger/ledgerd/internal/core/consensus"
)

func nodeID(b byte) consensus.NodeID {
	var id consensus.NodeID
	id[0] = b
	return id
}

func ledgerID(b byte) consensus.LedgerID {
	var id consensus.LedgerID
	id[0] = b
	return id
}

func TestAdd_CurrentThenSupersede(t *testing.T) {
	s := New(nil)
	now := time.Now()
	n := nodeID(1)

	v1 := &consensus.Validation{LedgerID: ledgerID(1), LedgerSeq: 5, SignTime: now, SeenTime: now}
	if status := s.Add(now, n, v1, true); status != AddCurrent {
		t.Fatalf("expected AddCurrent, got %v", status)
	}

	v2 := &consensus.Validation{LedgerID: ledgerID(2), LedgerSeq: 6, SignTime: now, SeenTime: now}
	if status := s.Add(now, n, v2, true); status != AddCurrent {
		t.Fatalf("expected AddCurrent for superseding validation, got %v", status)
	}

	trusted := s.CurrentTrusted()
	if len(trusted) != 1 || trusted[0] != v2 {
		t.Fatalf("expected exactly v2 as current, got %v", trusted)
	}
}

func TestAdd_StaleSignTimeRejected(t *testing.T) {
	s := New(nil)
	now := time.Now()
	n := nodeID(1)

	v := &consensus.Validation{LedgerID: ledgerID(1), LedgerSeq: 1, SignTime: now.Add(-time.Hour), SeenTime: now}
	if status := s.Add(now, n, v, true); status != AddStale {
		t.Fatalf("expected AddStale, got %v", status)
	}
	if len(s.CurrentTrusted()) != 0 {
		t.Fatal("stale validation must not become current")
	}
}

func TestAdd_BadSeqRejectsReuseAndRegression(t *testing.T) {
	s := New(nil)
	now := time.Now()
	n := nodeID(1)

	v1 := &consensus.Validation{LedgerID: ledgerID(1), LedgerSeq: 10, SignTime: now, SeenTime: now}
	if status := s.Add(now, n, v1, true); status != AddCurrent {
		t.Fatalf("expected AddCurrent, got %v", status)
	}

	// Same seq again within the expiry window.
	v2 := &consensus.Validation{LedgerID: ledgerID(2), LedgerSeq: 10, SignTime: now, SeenTime: now}
	if status := s.Add(now, n, v2, true); status != AddBadSeq {
		t.Fatalf("expected AddBadSeq for seq reuse, got %v", status)
	}

	// Lower seq.
	v3 := &consensus.Validation{LedgerID: ledgerID(3), LedgerSeq: 9, SignTime: now, SeenTime: now}
	if status := s.Add(now, n, v3, true); status != AddBadSeq {
		t.Fatalf("expected AddBadSeq for seq regression, got %v", status)
	}
}

func TestAdd_OnlyOneCurrentPerNode(t *testing.T) {
	s := New(nil)
	now := time.Now()

	for i := 0; i < 5; i++ {
		n := nodeID(byte(i))
		v := &consensus.Validation{LedgerID: ledgerID(1), LedgerSeq: 1, SignTime: now, SeenTime: now}
		s.Add(now, n, v, true)
	}

	if c := s.NumTrustedForLedger(ledgerID(1)); c != 5 {
		t.Fatalf("expected 5 trusted validations for ledger, got %d", c)
	}
}

func TestTrustChanged(t *testing.T) {
	s := New(nil)
	now := time.Now()
	n := nodeID(1)

	v := &consensus.Validation{LedgerID: ledgerID(1), LedgerSeq: 1, SignTime: now, SeenTime: now}
	s.Add(now, n, v, false)
	if len(s.CurrentTrusted()) != 0 {
		t.Fatal("untrusted validation must not count as trusted")
	}

	s.TrustChanged([]consensus.NodeID{n}, nil)
	if len(s.CurrentTrusted()) != 1 {
		t.Fatal("expected validation to count as trusted after TrustChanged")
	}

	s.TrustChanged(nil, []consensus.NodeID{n})
	if len(s.CurrentTrusted()) != 0 {
		t.Fatal("expected validation to stop counting as trusted after revoking trust")
	}
}

func TestExpire(t *testing.T) {
	s := New(nil)
	now := time.Now()
	n := nodeID(1)

	v := &consensus.Validation{LedgerID: ledgerID(1), LedgerSeq: 1, SignTime: now, SeenTime: now}
	s.Add(now, n, v, true)

	s.Expire(now.Add(SetExpires + time.Second))
	if len(s.CurrentTrusted()) != 0 {
		t.Fatal("expected validation to expire")
	}
}

// fakeAncestry models a single linear chain: ledger IDs equal their
// sequence number (as the first byte), each the sole ancestor of itself at
// its own sequence, and of any later sequence's ledger at that sequence.
type fakeAncestry struct {
	chain map[byte]byte // seq -> ledger id byte, single branch
}

func (f fakeAncestry) AncestorAt(id consensus.LedgerID, seq uint32) (consensus.LedgerID, bool) {
	idSeq := id[0]
	if uint32(idSeq) < seq {
		return consensus.LedgerID{}, false
	}
	b, ok := f.chain[byte(seq)]
	if !ok {
		return consensus.LedgerID{}, false
	}
	return ledgerID(b), true
}

func TestGetPreferred_AdvancesAlongSupportedChain(t *testing.T) {
	s := New(nil)
	now := time.Now()

	anc := fakeAncestry{chain: map[byte]byte{0: 0, 1: 1, 2: 2}}

	for i := 0; i < 4; i++ {
		n := nodeID(byte(i))
		v := &consensus.Validation{LedgerID: ledgerID(2), LedgerSeq: 2, SignTime: now, SeenTime: now}
		s.Add(now, n, v, true)
	}

	pref := s.GetPreferred(ledgerID(0), 0, anc)
	if pref.Seq != 2 || pref.ID != ledgerID(2) {
		t.Fatalf("expected preferred tip at seq 2, got seq=%d id=%v", pref.Seq, pref.ID)
	}
}

func TestGetPreferred_NoSupportReturnsCurrent(t *testing.T) {
	s := New(nil)
	anc := fakeAncestry{chain: map[byte]byte{0: 0}}

	pref := s.GetPreferred(ledgerID(0), 0, anc)
	if pref.ID != ledgerID(0) || pref.Seq != 0 {
		t.Fatalf("expected unchanged current ledger with no validations, got %v/%d", pref.ID, pref.Seq)
	}
}

func TestGetNodesAfter(t *testing.T) {
	s := New(nil)
	now := time.Now()
	anc := fakeAncestry{chain: map[byte]byte{0: 0, 1: 1}}

	for i := 0; i < 3; i++ {
		n := nodeID(byte(i))
		v := &consensus.Validation{LedgerID: ledgerID(1), LedgerSeq: 1, SignTime: now, SeenTime: now}
		s.Add(now, n, v, true)
	}

	if got := s.GetNodesAfter(ledgerID(0), 0, anc); got != 3 {
		t.Fatalf("expected 3 nodes after, got %d", got)
	}
}
