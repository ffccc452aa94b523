package txn

import (
	"fmt"

	"github.com/leftmike/duet/sql"
)

type UndoOp int

const (
	UndoDeletePK UndoOp = iota + 1 // inverse of INSERT
	UndoRestore                    // inverse of UPDATE
	UndoReinsert                   // inverse of DELETE
)

func (op UndoOp) String() string {
	switch op {
	case UndoDeletePK:
		return "delete"
	case UndoRestore:
		return "restore"
	case UndoReinsert:
		return "reinsert"
	}
	return fmt.Sprintf("undo op %d", int(op))
}

// UndoEntry is a self contained inverse of one data operation.
type UndoEntry struct {
	Op     UndoOp
	Table  sql.TableName
	PK     sql.Value
	OldRow []sql.Value // nil for UndoDeletePK
}

// UndoLog records inverse operations in execution order; Replay walks them
// in reverse on abort. The chains are pruned wholesale by discarding the
// transaction's uncommitted versions; the log is the authoritative record of
// what was undone for terminal accounting.
type UndoLog struct {
	entries []UndoEntry
}

func (ul *UndoLog) Append(e UndoEntry) {
	ul.entries = append(ul.entries, e)
}

func (ul *UndoLog) Len() int {
	return len(ul.entries)
}

func (ul *UndoLog) Replay(fn func(e UndoEntry)) {
	for edx := len(ul.entries) - 1; edx >= 0; edx-- {
		fn(ul.entries[edx])
	}
}
