package txn

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/duet/sql"
	"github.com/leftmike/duet/storage"
)

func copyRow(row []sql.Value) []sql.Value {
	if row == nil {
		return nil
	}
	return append(make([]sql.Value, 0, len(row)), row...)
}

// ReadRow resolves the version of rc appropriate to tx's timestamp, parking
// on an uncommitted peer version until its writer terminates. It returns a
// nil row for a missing row or a tombstone. The chain's read timestamp is
// lifted as a side effect.
func (cc *Controller) ReadRow(ctx context.Context, tx *Transaction,
	rc *storage.RowChain) ([]sql.Value, error) {

	for {
		rc.Lock()
		v := rc.Newest(tx.ts)
		if v == nil || v.Committed || v.WriteTS == tx.ts {
			var row []sql.Value
			if v != nil {
				row = copyRow(v.Row)
			}
			rc.LiftReadTS(tx.ts)
			tx.recordRead(rc)
			rc.Unlock()
			return row, nil
		}

		// The newest version visible to tx is uncommitted and belongs to a
		// peer; park until the writer commits or aborts and re-run the read.
		holderTS := v.WriteTS
		rc.Unlock()

		if !cc.readWait {
			return nil, Aborted(TimestampOrder,
				fmt.Errorf("txn: %s read %s %s with uncommitted version at %d", tx,
					rc.Table().TableName(), rc.PrimaryKeyString(), holderTS))
		}

		holder := cc.liveTransaction(holderTS)
		if holder == nil {
			// The writer terminated between the inspection and the lookup.
			continue
		}
		log.WithFields(log.Fields{
			"waiter": tx.String(),
			"holder": holder.String(),
			"chain":  fmt.Sprintf("%s %s", rc.Table().TableName(), rc.PrimaryKeyString()),
		}).Debug("read waiting on uncommitted version")
		err := cc.wait(ctx, tx, holder, rc)
		if err != nil {
			return nil, err
		}
	}
}

// WriteRow stages row (nil for a delete) as an uncommitted version of rc
// written by tx, enforcing the timestamp ordering write rules. A write below
// the chain's read timestamp or below its newest committed version aborts tx
// with TimestampOrder; an uncommitted peer version is waited on as for
// reads.
func (cc *Controller) WriteRow(ctx context.Context, tx *Transaction,
	rc *storage.RowChain, row []sql.Value) error {

	for {
		rc.Lock()
		if tx.ts < rc.ReadTS() {
			readTS := rc.ReadTS()
			rc.Unlock()
			return Aborted(TimestampOrder,
				fmt.Errorf("txn: %s wrote %s %s already read at %d", tx,
					rc.Table().TableName(), rc.PrimaryKeyString(), readTS))
		}
		if w := rc.NewestCommittedTS(); tx.ts < w {
			rc.Unlock()
			return Aborted(TimestampOrder,
				fmt.Errorf("txn: %s wrote %s %s already written at %d", tx,
					rc.Table().TableName(), rc.PrimaryKeyString(), w))
		}

		u := rc.Uncommitted()
		if u == nil || u.WriteTS == tx.ts {
			rc.PutVersion(copyRow(row), tx.ts)
			rc.Unlock()
			tx.recordWrite(rc)
			return nil
		}

		holderTS := u.WriteTS
		rc.Unlock()

		holder := cc.liveTransaction(holderTS)
		if holder == nil {
			continue
		}
		log.WithFields(log.Fields{
			"waiter": tx.String(),
			"holder": holder.String(),
			"chain":  fmt.Sprintf("%s %s", rc.Table().TableName(), rc.PrimaryKeyString()),
		}).Debug("write waiting on uncommitted version")
		err := cc.wait(ctx, tx, holder, rc)
		if err != nil {
			return err
		}
	}
}

// PrepareWrites verifies, for every chain tx wrote in st, that the staged
// uncommitted version is still present and has not been superseded. It is
// the store's vote in the prepare phase of two phase commit.
func (cc *Controller) PrepareWrites(tx *Transaction, st *storage.Store) error {
	for _, rc := range tx.Writes(st) {
		rc.Lock()
		u := rc.Uncommitted()
		ok := u != nil && u.WriteTS == tx.ts && rc.NewestCommittedTS() <= tx.ts
		rc.Unlock()
		if !ok {
			return Aborted(PrepareFail,
				fmt.Errorf("txn: %s prepare failed on %s %s", tx, rc.Table().TableName(),
					rc.PrimaryKeyString()))
		}
	}
	return nil
}

// CommitWrites flips tx's staged versions in st to committed. It must not
// fail; it only mutates in-memory booleans (and the secondary indexes which
// follow committed rows).
func (cc *Controller) CommitWrites(tx *Transaction, st *storage.Store) {
	for _, rc := range tx.Writes(st) {
		rc.Lock()
		rc.CommitVersions(tx.ts)
		rc.Unlock()
	}
}

// DiscardWrites removes every uncommitted version staged by tx; undo replay
// is the logical record, this prunes the chains.
func (cc *Controller) DiscardWrites(tx *Transaction) {
	for _, rc := range tx.Writes(nil) {
		rc.Lock()
		rc.RemoveVersions(tx.ts)
		rc.Unlock()
	}
}
