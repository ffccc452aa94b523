package storage

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/leftmike/duet/sql"
)

type Table struct {
	st          *Store
	name        sql.Identifier
	columns     []sql.Identifier
	columnTypes []sql.ColumnType
	primary     int // index into columns

	mutex   sync.RWMutex
	chains  *btree.BTree
	indexes []*index

	lastID uint64
}

type chainItem struct {
	chain *RowChain
}

func (ci chainItem) Less(item btree.Item) bool {
	return sql.Compare(ci.chain.pk, item.(chainItem).chain.pk) < 0
}

// index maps the formatted value of one column to the set of primary keys of
// the committed rows holding that value. Indexes are maintained at commit
// boundaries only.
type index struct {
	column int
	unique bool
	mutex  sync.Mutex
	keys   map[string]map[string]struct{}
}

func makeTable(st *Store, tblname sql.Identifier, cols []sql.Identifier,
	colTypes []sql.ColumnType, primary sql.Identifier, indexes []IndexSpec) (*Table, error) {

	tbl := &Table{
		st:          st,
		name:        tblname,
		columns:     cols,
		columnTypes: colTypes,
		primary:     -1,
		chains:      btree.New(16),
	}
	for cdx, col := range cols {
		if col == primary {
			tbl.primary = cdx
		}
	}
	if tbl.primary < 0 {
		return nil, fmt.Errorf("storage: table %s.%s: primary key column %s not found", st.name,
			tblname, primary)
	}
	if !colTypes[tbl.primary].NotNull {
		return nil, fmt.Errorf("storage: table %s.%s: primary key column %s must be NOT NULL",
			st.name, tblname, primary)
	}

	for _, is := range indexes {
		cdx := -1
		for jdx, col := range cols {
			if col == is.Column {
				cdx = jdx
			}
		}
		if cdx < 0 {
			return nil, fmt.Errorf("storage: table %s.%s: index column %s not found", st.name,
				tblname, is.Column)
		}
		tbl.indexes = append(tbl.indexes,
			&index{
				column: cdx,
				unique: is.Unique,
				keys:   map[string]map[string]struct{}{},
			})
	}

	return tbl, nil
}

func (tbl *Table) Name() sql.Identifier {
	return tbl.name
}

func (tbl *Table) Store() *Store {
	return tbl.st
}

func (tbl *Table) TableName() sql.TableName {
	return sql.TableName{Store: tbl.st.name, Table: tbl.name}
}

func (tbl *Table) Columns() []sql.Identifier {
	return tbl.columns
}

func (tbl *Table) ColumnTypes() []sql.ColumnType {
	return tbl.columnTypes
}

func (tbl *Table) Primary() int {
	return tbl.primary
}

// NextID generates primary keys for tables whose callers do not supply one.
func (tbl *Table) NextID() sql.Value {
	return sql.Int64Value(atomic.AddUint64(&tbl.lastID, 1))
}

// ConvertRow checks arity and coerces every column value to the column type.
func (tbl *Table) ConvertRow(row []sql.Value) ([]sql.Value, error) {
	if len(row) != len(tbl.columns) {
		return nil, fmt.Errorf("storage: table %s: row has %d values; want %d: %w",
			tbl.TableName(), len(row), len(tbl.columns), ErrTypeMismatch)
	}

	crow := make([]sql.Value, len(row))
	for cdx := range row {
		v, err := tbl.columnTypes[cdx].ConvertValue(tbl.columns[cdx], row[cdx])
		if err != nil {
			if row[cdx] == nil {
				return nil, fmt.Errorf("storage: table %s: %s: %w", tbl.TableName(), err,
					ErrConstraint)
			}
			return nil, fmt.Errorf("storage: table %s: %s: %w", tbl.TableName(), err,
				ErrTypeMismatch)
		}
		crow[cdx] = v
	}
	return crow, nil
}

func (tbl *Table) ColumnIndex(col sql.Identifier) (int, error) {
	for cdx, c := range tbl.columns {
		if c == col {
			return cdx, nil
		}
	}
	return -1, fmt.Errorf("storage: table %s: column %s not found: %w", tbl.TableName(), col,
		ErrTypeMismatch)
}

// RowChain returns the version chain for pk, creating an empty chain when
// create is true. A nil chain means the table holds no chain for pk: the row
// was never written, or it was deleted and its chain vacuumed.
func (tbl *Table) RowChain(pk sql.Value, create bool) *RowChain {
	if create {
		tbl.mutex.Lock()
		defer tbl.mutex.Unlock()
	} else {
		tbl.mutex.RLock()
		defer tbl.mutex.RUnlock()
	}

	item := tbl.chains.Get(chainItem{chain: &RowChain{pk: pk}})
	if item != nil {
		return item.(chainItem).chain
	}
	if !create {
		return nil
	}

	rc := &RowChain{
		tbl:   tbl,
		pk:    pk,
		pkKey: sql.Format(pk),
	}
	tbl.chains.ReplaceOrInsert(chainItem{chain: rc})
	return rc
}

// Chains returns the table's chains in primary key order.
func (tbl *Table) Chains() []*RowChain {
	tbl.mutex.RLock()
	defer tbl.mutex.RUnlock()

	chains := make([]*RowChain, 0, tbl.chains.Len())
	tbl.chains.Ascend(
		func(item btree.Item) bool {
			chains = append(chains, item.(chainItem).chain)
			return true
		})
	return chains
}

func (tbl *Table) removeChain(rc *RowChain) {
	tbl.mutex.Lock()
	defer tbl.mutex.Unlock()

	tbl.chains.Delete(chainItem{chain: &RowChain{pk: rc.pk}})
}

// CheckUnique fails if a unique index already maps one of row's indexed
// values to a different primary key. The check is a deterministic pre-check
// against committed rows; the txn layer serializes conflicting writers.
func (tbl *Table) CheckUnique(pkKey string, row []sql.Value) error {
	for _, idx := range tbl.indexes {
		if !idx.unique || row[idx.column] == nil {
			continue
		}
		vk := sql.Format(row[idx.column])

		idx.mutex.Lock()
		pks, ok := idx.keys[vk]
		if ok {
			if _, own := pks[pkKey]; !own && len(pks) > 0 {
				idx.mutex.Unlock()
				return fmt.Errorf("storage: table %s: column %s: duplicate value %s: %w",
					tbl.TableName(), tbl.columns[idx.column], vk, ErrConstraint)
			}
		}
		idx.mutex.Unlock()
	}
	return nil
}

// IndexLookup returns the primary keys of committed rows holding value in
// the indexed column.
func (tbl *Table) IndexLookup(col sql.Identifier, value sql.Value) ([]string, error) {
	cdx, err := tbl.ColumnIndex(col)
	if err != nil {
		return nil, err
	}
	for _, idx := range tbl.indexes {
		if idx.column != cdx {
			continue
		}

		idx.mutex.Lock()
		defer idx.mutex.Unlock()

		var pkKeys []string
		for pkKey := range idx.keys[sql.Format(value)] {
			pkKeys = append(pkKeys, pkKey)
		}
		return pkKeys, nil
	}
	return nil, fmt.Errorf("storage: table %s: column %s is not indexed", tbl.TableName(), col)
}

func (tbl *Table) updateIndexes(pkKey string, oldRow, newRow []sql.Value) {
	for _, idx := range tbl.indexes {
		var oldKey, newKey string
		var haveOld, haveNew bool
		if oldRow != nil && oldRow[idx.column] != nil {
			oldKey = sql.Format(oldRow[idx.column])
			haveOld = true
		}
		if newRow != nil && newRow[idx.column] != nil {
			newKey = sql.Format(newRow[idx.column])
			haveNew = true
		}
		if haveOld && haveNew && oldKey == newKey {
			continue
		}

		idx.mutex.Lock()
		if haveOld {
			if pks, ok := idx.keys[oldKey]; ok {
				delete(pks, pkKey)
				if len(pks) == 0 {
					delete(idx.keys, oldKey)
				}
			}
		}
		if haveNew {
			pks, ok := idx.keys[newKey]
			if !ok {
				pks = map[string]struct{}{}
				idx.keys[newKey] = pks
			}
			pks[pkKey] = struct{}{}
		}
		idx.mutex.Unlock()
	}
}
