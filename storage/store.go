package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leftmike/duet/sql"
)

var (
	ErrUnknownTable = errors.New("unknown table")
	ErrDuplicatePK  = errors.New("duplicate primary key")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrConstraint   = errors.New("constraint violation")
)

// Store is a named collection of tables. Isolation is not enforced here; the
// txn layer resolves every read and write against the version chains hosted
// by the tables.
type Store struct {
	name    sql.Identifier
	mutex   sync.RWMutex
	tables  map[sql.Identifier]*Table
	prepare sync.Mutex
}

type IndexSpec struct {
	Column sql.Identifier
	Unique bool
}

func NewStore(name sql.Identifier) *Store {
	return &Store{
		name:   name,
		tables: map[sql.Identifier]*Table{},
	}
}

func (st *Store) Name() sql.Identifier {
	return st.name
}

// CreateTable creates a table with a single column primary key; it is
// idempotent by name.
func (st *Store) CreateTable(tblname sql.Identifier, cols []sql.Identifier,
	colTypes []sql.ColumnType, primary sql.Identifier, indexes []IndexSpec) error {

	if len(cols) != len(colTypes) {
		return fmt.Errorf("storage: table %s.%s: %d columns with %d column types", st.name,
			tblname, len(cols), len(colTypes))
	}

	st.mutex.Lock()
	defer st.mutex.Unlock()

	if _, ok := st.tables[tblname]; ok {
		return nil
	}

	tbl, err := makeTable(st, tblname, cols, colTypes, primary, indexes)
	if err != nil {
		return err
	}
	st.tables[tblname] = tbl
	return nil
}

func (st *Store) LookupTable(tblname sql.Identifier) (*Table, error) {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	tbl, ok := st.tables[tblname]
	if !ok {
		return nil, fmt.Errorf("storage: table %s.%s: %w", st.name, tblname, ErrUnknownTable)
	}
	return tbl, nil
}

func (st *Store) ListTables() []sql.Identifier {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	var tblnames []sql.Identifier
	for tblname := range st.tables {
		tblnames = append(tblnames, tblname)
	}
	return tblnames
}

// LockPrepare acquires the store's prepare latch; the coordinator holds it
// while verifying the store's half of a two phase commit.
func (st *Store) LockPrepare() {
	st.prepare.Lock()
}

func (st *Store) UnlockPrepare() {
	st.prepare.Unlock()
}
