// Package node provides a minimal single-process runtime that lets the
// consensus engine (and the validation store it owns) run without a real
// peer-to-peer network or ledger store behind them. The transaction queue
// and the close timer are not used here.
// Those collaborators (transport, storage, serialization) are out of scope
// here; this package stands in for them with in-memory equivalents so the
// core round lifecycle can run end to end from a command-line binary.
package node

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/coreledger/ledgerd/internal/core/consensus"
)

// memLedger is an in-memory consensus.Ledger.
type memLedger struct {
	id        consensus.LedgerID
	seq       uint32
	parentID  consensus.LedgerID
	closeTime time.Time
	txSetID   consensus.TxSetID
	txs       [][]byte
}

func (l *memLedger) ID() consensus.LedgerID       { return l.id }
func (l *memLedger) Seq() uint32                  { return l.seq }
func (l *memLedger) ParentID() consensus.LedgerID { return l.parentID }
func (l *memLedger) CloseTime() time.Time         { return l.closeTime }
func (l *memLedger) TxSetID() consensus.TxSetID   { return l.txSetID }
func (l *memLedger) Bytes() []byte                { return l.txSetID[:] }

// newGenesisLedger builds the single root ledger a standalone node starts from.
func newGenesisLedger() *memLedger {
	return &memLedger{
		id:        consensus.LedgerID{},
		seq:       0,
		closeTime: time.Unix(0, 0),
	}
}

// deriveLedgerID hashes the fields that make a ledger unique, the same way
// a real ledger's hash would be derived from its header.
func deriveLedgerID(parent consensus.LedgerID, seq uint32, txSetID consensus.TxSetID, closeTime time.Time) consensus.LedgerID {
	h := sha256.New()
	h.Write(parent[:])
	var seqBuf [4]byte
	binary.BigEndian.PutUint32(seqBuf[:], seq)
	h.Write(seqBuf[:])
	h.Write(txSetID[:])
	var tBuf [8]byte
	binary.BigEndian.PutUint64(tBuf[:], uint64(closeTime.Unix()))
	h.Write(tBuf[:])

	var id consensus.LedgerID
	copy(id[:], h.Sum(nil))
	return id
}

// memTxSet is an in-memory consensus.TxSet.
type memTxSet struct {
	id  consensus.TxSetID
	txs [][]byte
}

func newTxSet(txs [][]byte) *memTxSet {
	h := sha256.New()
	for _, tx := range txs {
		h.Write(tx)
	}
	var id consensus.TxSetID
	copy(id[:], h.Sum(nil))
	return &memTxSet{id: id, txs: txs}
}

func (ts *memTxSet) ID() consensus.TxSetID { return ts.id }
func (ts *memTxSet) Txs() [][]byte         { return ts.txs }
func (ts *memTxSet) Size() int             { return len(ts.txs) }
func (ts *memTxSet) Bytes() []byte         { return ts.id[:] }

func (ts *memTxSet) Contains(id consensus.TxID) bool {
	for _, t := range ts.txs {
		if txID(t) == id {
			return true
		}
	}
	return false
}

func (ts *memTxSet) Add(tx []byte) error {
	ts.txs = append(ts.txs, tx)
	return nil
}

func (ts *memTxSet) Remove(id consensus.TxID) error {
	for i, t := range ts.txs {
		if txID(t) == id {
			ts.txs = append(ts.txs[:i], ts.txs[i+1:]...)
			return nil
		}
	}
	return nil
}

func txID(raw []byte) consensus.TxID {
	return consensus.TxID(sha256.Sum256(raw))
}
