package txn

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/leftmike/duet/storage"
)

type State int

const (
	StateActive State = iota + 1
	StatePreparing
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePreparing:
		return "preparing"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state %d", int(s))
}

// Transaction is the controller's record of one running transaction. It is
// used by exactly one goroutine at a time; the mutex guards the fields which
// other transactions inspect while breaking deadlocks.
type Transaction struct {
	id uuid.UUID
	ts uint64

	mutex sync.Mutex
	state State

	// done is closed when the transaction reaches a terminal state; waiting
	// transactions park on it.
	done chan struct{}

	// victim is closed when the transaction is selected as a deadlock
	// victim; a blocked transaction wakes and aborts.
	victim     chan struct{}
	victimized bool

	readSet      map[*storage.RowChain]struct{}
	writeSet     []*storage.RowChain
	writeMember  map[*storage.RowChain]struct{}
	participants map[*storage.Store]struct{}
	undo         UndoLog
}

func (tx *Transaction) ID() uuid.UUID {
	return tx.id
}

func (tx *Transaction) TS() uint64 {
	return tx.ts
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("transaction-%d", tx.ts)
}

func (tx *Transaction) State() State {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()

	return tx.state
}

func (tx *Transaction) SetState(s State) {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()

	tx.state = s
}

// Touch records st as a commit participant on first touch.
func (tx *Transaction) Touch(st *storage.Store) {
	if _, ok := tx.participants[st]; !ok {
		tx.participants[st] = struct{}{}
	}
}

// Participants returns the touched stores in deterministic (name) order.
func (tx *Transaction) Participants() []*storage.Store {
	stores := make([]*storage.Store, 0, len(tx.participants))
	for st := range tx.participants {
		stores = append(stores, st)
	}
	sort.Slice(stores, func(i, j int) bool {
		return stores[i].Name().String() < stores[j].Name().String()
	})
	return stores
}

func (tx *Transaction) recordRead(rc *storage.RowChain) {
	tx.readSet[rc] = struct{}{}
}

func (tx *Transaction) recordWrite(rc *storage.RowChain) {
	if _, ok := tx.writeMember[rc]; ok {
		return
	}
	tx.writeMember[rc] = struct{}{}
	tx.writeSet = append(tx.writeSet, rc)
}

// Writes returns the chains written by the transaction, restricted to st
// when st is not nil, in write order.
func (tx *Transaction) Writes(st *storage.Store) []*storage.RowChain {
	if st == nil {
		return tx.writeSet
	}

	var chains []*storage.RowChain
	for _, rc := range tx.writeSet {
		if rc.Table().Store() == st {
			chains = append(chains, rc)
		}
	}
	return chains
}

func (tx *Transaction) Undo() *UndoLog {
	return &tx.undo
}

func (tx *Transaction) victimize() {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()

	if !tx.victimized {
		tx.victimized = true
		close(tx.victim)
	}
}
