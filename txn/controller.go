package txn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/duet/storage"
)

// Controller assigns transaction timestamps and enforces timestamp ordering
// with multiversion reads. It owns the wait-for graph: edges are added when
// a transaction blocks on an uncommitted peer version and removed when the
// waiter unblocks or either side terminates. Cycle detection runs on every
// edge insertion and aborts the youngest transaction in the cycle.
type Controller struct {
	waitTimeout time.Duration
	readWait    bool

	lastTS    uint64 // atomic
	deadlocks uint64 // atomic

	mutex sync.Mutex
	live  map[uint64]*Transaction
	waits map[uint64]*waitEdge // waiter ts -> its single outgoing edge
}

type waitEdge struct {
	waiter uint64
	holder uint64
	chain  *storage.RowChain
}

func NewController(initialTS uint64, waitTimeout time.Duration, readWait bool) *Controller {
	if initialTS < 1 {
		initialTS = 1
	}
	return &Controller{
		waitTimeout: waitTimeout,
		readWait:    readWait,
		lastTS:      initialTS - 1,
		live:        map[uint64]*Transaction{},
		waits:       map[uint64]*waitEdge{},
	}
}

// Begin assigns the next timestamp and registers a new active transaction.
func (cc *Controller) Begin() *Transaction {
	ts := atomic.AddUint64(&cc.lastTS, 1)
	tx := &Transaction{
		id:           uuid.New(),
		ts:           ts,
		state:        StateActive,
		done:         make(chan struct{}),
		victim:       make(chan struct{}),
		readSet:      map[*storage.RowChain]struct{}{},
		writeMember:  map[*storage.RowChain]struct{}{},
		participants: map[*storage.Store]struct{}{},
	}

	cc.mutex.Lock()
	cc.live[ts] = tx
	cc.mutex.Unlock()

	log.WithFields(log.Fields{"txid": tx.id, "ts": ts}).Debug("begin transaction")
	return tx
}

func (cc *Controller) liveTransaction(ts uint64) *Transaction {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	return cc.live[ts]
}

func (cc *Controller) LiveCount() int {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	return len(cc.live)
}

// MinLiveTS is the smallest live timestamp; versions older than it are
// vacuum candidates. With no live transactions it is the next timestamp to
// be assigned.
func (cc *Controller) MinLiveTS() uint64 {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	min := atomic.LoadUint64(&cc.lastTS) + 1
	for ts := range cc.live {
		if ts < min {
			min = ts
		}
	}
	return min
}

func (cc *Controller) Deadlocks() uint64 {
	return atomic.LoadUint64(&cc.deadlocks)
}

// Finish moves tx to a terminal state, removes it from the live table and
// the wait-for graph, and wakes every transaction parked on it.
func (cc *Controller) Finish(tx *Transaction, s State) {
	tx.SetState(s)

	cc.mutex.Lock()
	delete(cc.live, tx.ts)
	delete(cc.waits, tx.ts)
	cc.mutex.Unlock()

	close(tx.done)
}

// wait parks tx until holder reaches a terminal state. It inserts the wait
// edge, runs cycle detection, and breaks any cycle by aborting the youngest
// transaction in it. The wait is bounded by the controller's wait timeout
// and honors ctx cancellation.
func (cc *Controller) wait(ctx context.Context, tx, holder *Transaction,
	rc *storage.RowChain) error {

	cc.mutex.Lock()
	if _, ok := cc.live[holder.ts]; !ok {
		// The holder reached a terminal state before the edge was added;
		// treat the wait as already satisfied.
		cc.mutex.Unlock()
		return nil
	}
	cc.waits[tx.ts] = &waitEdge{waiter: tx.ts, holder: holder.ts, chain: rc}
	victim := cc.detectCycle(tx.ts)
	if victim != nil {
		delete(cc.waits, victim.ts)
	}
	cc.mutex.Unlock()

	if victim != nil {
		atomic.AddUint64(&cc.deadlocks, 1)
		log.WithFields(log.Fields{
			"victim": victim.String(),
			"waiter": tx.String(),
			"holder": holder.String(),
		}).Warn("deadlock detected")

		if victim == tx {
			return Aborted(Deadlock, fmt.Errorf("txn: %s waiting for %s on %s %s", tx, holder,
				rc.Table().TableName(), rc.PrimaryKeyString()))
		}
		victim.victimize()
	}

	var err error
	select {
	case <-holder.done:
		// Re-run the operation against the chain.
	case <-tx.victim:
		err = Aborted(Deadlock, fmt.Errorf("txn: %s selected as deadlock victim", tx))
	case <-time.After(cc.waitTimeout):
		err = Aborted(Timeout, fmt.Errorf("txn: %s waited more than %s for %s", tx,
			cc.waitTimeout, holder))
	case <-ctx.Done():
		err = Aborted(UserAbort, ctx.Err())
	}

	cc.mutex.Lock()
	if we, ok := cc.waits[tx.ts]; ok && we.holder == holder.ts {
		delete(cc.waits, tx.ts)
	}
	cc.mutex.Unlock()

	return err
}

// detectCycle follows wait edges from ts; every waiter has at most one
// outgoing edge, so the walk is the depth first search. It returns the
// transaction with the largest timestamp in the cycle, or nil. The caller
// must hold the controller mutex.
func (cc *Controller) detectCycle(ts uint64) *Transaction {
	visited := map[uint64]struct{}{ts: {}}
	victimTS := ts

	cur := ts
	for {
		we, ok := cc.waits[cur]
		if !ok {
			return nil
		}
		cur = we.holder
		if cur == ts {
			break
		}
		if _, ok := visited[cur]; ok {
			// A cycle not involving ts; it was detected when its own last
			// edge was inserted.
			return nil
		}
		visited[cur] = struct{}{}
		if cur > victimTS {
			victimTS = cur
		}
	}

	return cc.live[victimTS]
}
