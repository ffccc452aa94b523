package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/duet/sql"
	"github.com/leftmike/duet/storage"
	"github.com/leftmike/duet/txn"
)

var (
	errTxComplete = errors.New("engine: transaction already committed or aborted")
)

// Tx is the transactional handle given to workloads. It is used by one
// goroutine at a time.
type Tx struct {
	e        *Engine
	tx       *txn.Transaction
	complete bool
}

func (tx *Tx) TS() uint64 {
	return tx.tx.TS()
}

func (tx *Tx) table(snam, tnam sql.Identifier) (*storage.Table, error) {
	st, err := tx.e.Store(snam)
	if err != nil {
		return nil, txn.Aborted(txn.ConstraintViolation, err)
	}
	tbl, err := st.LookupTable(tnam)
	if err != nil {
		return nil, txn.Aborted(txn.ConstraintViolation, err)
	}
	tx.tx.Touch(st)
	return tbl, nil
}

// Read returns the row with primary key pk visible at the transaction's
// timestamp, or nil if there is no such row.
func (tx *Tx) Read(ctx context.Context, snam, tnam sql.Identifier,
	pk sql.Value) ([]sql.Value, error) {

	if tx.complete {
		return nil, errTxComplete
	}
	tbl, err := tx.table(snam, tnam)
	if err != nil {
		return nil, err
	}

	rc := tbl.RowChain(pk, false)
	if rc == nil {
		return nil, nil
	}
	return tx.e.cc.ReadRow(ctx, tx.tx, rc)
}

// Scan returns the rows visible at the transaction's timestamp for which
// pred returns true, in primary key order; a nil pred selects every row.
func (tx *Tx) Scan(ctx context.Context, snam, tnam sql.Identifier,
	pred func(row []sql.Value) bool) ([][]sql.Value, error) {

	if tx.complete {
		return nil, errTxComplete
	}
	tbl, err := tx.table(snam, tnam)
	if err != nil {
		return nil, err
	}

	var rows [][]sql.Value
	for _, rc := range tbl.Chains() {
		row, err := tx.e.cc.ReadRow(ctx, tx.tx, rc)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		if pred == nil || pred(row) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Insert adds row to the table; a nil primary key value is assigned from the
// table's sequence.
func (tx *Tx) Insert(ctx context.Context, snam, tnam sql.Identifier,
	row []sql.Value) (sql.Value, error) {

	if tx.complete {
		return nil, errTxComplete
	}
	tbl, err := tx.table(snam, tnam)
	if err != nil {
		return nil, err
	}

	pdx := tbl.Primary()
	if pdx < len(row) && row[pdx] == nil {
		row = append(make([]sql.Value, 0, len(row)), row...)
		row[pdx] = tbl.NextID()
	}

	row, err = tbl.ConvertRow(row)
	if err != nil {
		return nil, abortStorage(err)
	}
	pk := row[pdx]

	rc := tbl.RowChain(pk, true)
	old, err := tx.e.cc.ReadRow(ctx, tx.tx, rc)
	if err != nil {
		return nil, err
	}
	if old != nil {
		return nil, txn.Aborted(txn.ConstraintViolation,
			fmt.Errorf("storage: table %s: %w: %s", tbl.TableName(), storage.ErrDuplicatePK,
				sql.Format(pk)))
	}
	err = tbl.CheckUnique(rc.PrimaryKeyString(), row)
	if err != nil {
		return nil, abortStorage(err)
	}

	err = tx.e.cc.WriteRow(ctx, tx.tx, rc, row)
	if err != nil {
		return nil, err
	}
	tx.tx.Undo().Append(txn.UndoEntry{
		Op:    txn.UndoDeletePK,
		Table: tbl.TableName(),
		PK:    pk,
	})

	log.WithFields(log.Fields{"tx": tx.tx.String(), "table": tbl.TableName().String(),
		"pk": sql.Format(pk)}).Debug("insert")
	return pk, nil
}

// Update modifies the row with primary key pk; the primary key column may
// not be updated.
func (tx *Tx) Update(ctx context.Context, snam, tnam sql.Identifier, pk sql.Value,
	updates []sql.ColumnUpdate) error {

	if tx.complete {
		return errTxComplete
	}
	tbl, err := tx.table(snam, tnam)
	if err != nil {
		return err
	}

	rc := tbl.RowChain(pk, false)
	var old []sql.Value
	if rc != nil {
		old, err = tx.e.cc.ReadRow(ctx, tx.tx, rc)
		if err != nil {
			return err
		}
	}
	if old == nil {
		return txn.Aborted(txn.ConstraintViolation,
			fmt.Errorf("engine: table %s: row %s not found", sql.TableName{Store: snam, Table: tnam},
				sql.Format(pk)))
	}

	row := append(make([]sql.Value, 0, len(old)), old...)
	for _, cu := range updates {
		cdx, err := tbl.ColumnIndex(cu.Column)
		if err != nil {
			return abortStorage(err)
		}
		if cdx == tbl.Primary() {
			return txn.Aborted(txn.ConstraintViolation,
				fmt.Errorf("engine: table %s: primary key column %s may not be updated",
					tbl.TableName(), cu.Column))
		}
		row[cdx] = cu.Value
	}

	row, err = tbl.ConvertRow(row)
	if err != nil {
		return abortStorage(err)
	}
	err = tbl.CheckUnique(rc.PrimaryKeyString(), row)
	if err != nil {
		return abortStorage(err)
	}

	err = tx.e.cc.WriteRow(ctx, tx.tx, rc, row)
	if err != nil {
		return err
	}
	tx.tx.Undo().Append(txn.UndoEntry{
		Op:     txn.UndoRestore,
		Table:  tbl.TableName(),
		PK:     pk,
		OldRow: old,
	})

	log.WithFields(log.Fields{"tx": tx.tx.String(), "table": tbl.TableName().String(),
		"pk": sql.Format(pk)}).Debug("update")
	return nil
}

// Delete removes the row with primary key pk.
func (tx *Tx) Delete(ctx context.Context, snam, tnam sql.Identifier, pk sql.Value) error {
	if tx.complete {
		return errTxComplete
	}
	tbl, err := tx.table(snam, tnam)
	if err != nil {
		return err
	}

	rc := tbl.RowChain(pk, false)
	var old []sql.Value
	if rc != nil {
		old, err = tx.e.cc.ReadRow(ctx, tx.tx, rc)
		if err != nil {
			return err
		}
	}
	if old == nil {
		return txn.Aborted(txn.ConstraintViolation,
			fmt.Errorf("engine: table %s: row %s not found", sql.TableName{Store: snam, Table: tnam},
				sql.Format(pk)))
	}

	err = tx.e.cc.WriteRow(ctx, tx.tx, rc, nil)
	if err != nil {
		return err
	}
	tx.tx.Undo().Append(txn.UndoEntry{
		Op:     txn.UndoReinsert,
		Table:  tbl.TableName(),
		PK:     pk,
		OldRow: old,
	})

	log.WithFields(log.Fields{"tx": tx.tx.String(), "table": tbl.TableName().String(),
		"pk": sql.Format(pk)}).Debug("delete")
	return nil
}

// Commit runs the two phase commit over the participant stores: every
// participant verifies the transaction's staged versions in deterministic
// order, then the commit step flips them committed. A prepare veto aborts
// the transaction with PrepareFail.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.complete {
		return errTxComplete
	}

	tx.tx.SetState(txn.StatePreparing)
	for _, st := range tx.tx.Participants() {
		st.LockPrepare()
		err := tx.e.cc.PrepareWrites(tx.tx, st)
		st.UnlockPrepare()
		if err != nil {
			ae, _ := txn.IsAborted(err)
			tx.abort(ae.Cause, ae.Err)
			return err
		}
	}

	tx.tx.SetState(txn.StateCommitted)
	for _, st := range tx.tx.Participants() {
		tx.e.cc.CommitWrites(tx.tx, st)
	}
	tx.e.cc.Finish(tx.tx, txn.StateCommitted)
	tx.complete = true
	atomic.AddUint64(&tx.e.committed, 1)

	log.WithFields(log.Fields{"tx": tx.tx.String(), "writes": len(tx.tx.Writes(nil))}).
		Debug("committed transaction")
	return nil
}

// Abort rolls the transaction back at the caller's request.
func (tx *Tx) Abort() error {
	if tx.complete {
		return errTxComplete
	}
	err := txn.Aborted(txn.UserAbort, nil)
	tx.abort(txn.UserAbort, nil)
	return err
}

// abort replays the undo log in reverse, discards the transaction's
// uncommitted versions, and moves it to a terminal state.
func (tx *Tx) abort(cause txn.AbortCause, err error) {
	if tx.complete {
		return
	}

	var undone int
	tx.tx.Undo().Replay(func(e txn.UndoEntry) {
		log.WithFields(log.Fields{
			"tx":    tx.tx.String(),
			"op":    e.Op.String(),
			"table": e.Table.String(),
			"pk":    sql.Format(e.PK),
		}).Debug("undo")
		undone += 1
	})
	tx.e.cc.DiscardWrites(tx.tx)
	tx.e.cc.Finish(tx.tx, txn.StateAborted)
	tx.complete = true
	atomic.AddUint64(&tx.e.aborted, 1)

	fields := log.Fields{"tx": tx.tx.String(), "cause": cause.String(), "undone": undone}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.WithFields(fields).Info("aborted transaction")
}

func abortStorage(err error) error {
	if errors.Is(err, storage.ErrTypeMismatch) {
		return txn.Aborted(txn.TypeMismatch, err)
	}
	return txn.Aborted(txn.ConstraintViolation, err)
}
