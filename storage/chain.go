package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/leftmike/duet/sql"
)

// Version is one entry of a row's version chain. A nil row is a tombstone.
type Version struct {
	Row       []sql.Value
	WriteTS   uint64
	Committed bool
	createdAt time.Time
}

// RowChain is the ordered list of versions for one (store, table, primary
// key), newest first. Write timestamps strictly decrease along the chain and
// at most one version is uncommitted at any time; the txn layer maintains
// both invariants. The chain's mutex is held briefly for inspection and
// splicing, never across a wait.
type RowChain struct {
	tbl   *Table
	pk    sql.Value
	pkKey string

	mutex    sync.Mutex
	readTS   uint64
	versions []*Version
}

func (rc *RowChain) Table() *Table {
	return rc.tbl
}

func (rc *RowChain) PrimaryKey() sql.Value {
	return rc.pk
}

func (rc *RowChain) PrimaryKeyString() string {
	return rc.pkKey
}

func (rc *RowChain) Lock() {
	rc.mutex.Lock()
}

func (rc *RowChain) Unlock() {
	rc.mutex.Unlock()
}

// ReadTS is the largest timestamp of any transaction that has read this
// chain. The caller must hold the chain lock.
func (rc *RowChain) ReadTS() uint64 {
	return rc.readTS
}

func (rc *RowChain) LiftReadTS(ts uint64) {
	if ts > rc.readTS {
		rc.readTS = ts
	}
}

// Newest returns the newest version with WriteTS <= ts, committed or not.
func (rc *RowChain) Newest(ts uint64) *Version {
	for _, v := range rc.versions {
		if v.WriteTS <= ts {
			return v
		}
	}
	return nil
}

// Uncommitted returns the chain's uncommitted version, if any.
func (rc *RowChain) Uncommitted() *Version {
	for _, v := range rc.versions {
		if !v.Committed {
			return v
		}
	}
	return nil
}

func (rc *RowChain) NewestCommittedTS() uint64 {
	for _, v := range rc.versions {
		if v.Committed {
			return v.WriteTS
		}
	}
	return 0
}

// PutVersion stages row as the uncommitted version written at ts, replacing
// the writer's existing uncommitted version in place if there is one.
func (rc *RowChain) PutVersion(row []sql.Value, ts uint64) {
	if u := rc.Uncommitted(); u != nil {
		if u.WriteTS != ts {
			panic(fmt.Sprintf("storage: chain %s %s: uncommitted version at %d; writing at %d",
				rc.tbl.TableName(), rc.pkKey, u.WriteTS, ts))
		}
		u.Row = row
		return
	}
	if len(rc.versions) > 0 && rc.versions[0].WriteTS >= ts {
		panic(fmt.Sprintf("storage: chain %s %s: version at %d is newer than write at %d",
			rc.tbl.TableName(), rc.pkKey, rc.versions[0].WriteTS, ts))
	}

	rc.versions = append([]*Version{
		&Version{
			Row:       row,
			WriteTS:   ts,
			createdAt: time.Now(),
		},
	}, rc.versions...)
}

// RemoveVersions discards the uncommitted version written at ts, if any.
func (rc *RowChain) RemoveVersions(ts uint64) {
	for vdx, v := range rc.versions {
		if !v.Committed && v.WriteTS == ts {
			rc.versions = append(rc.versions[:vdx], rc.versions[vdx+1:]...)
			return
		}
	}
}

// CommitVersions marks the version written at ts as committed and brings the
// table's secondary indexes up to date with the new committed row.
func (rc *RowChain) CommitVersions(ts uint64) {
	for _, v := range rc.versions {
		if !v.Committed && v.WriteTS == ts {
			var oldRow []sql.Value
			for _, ov := range rc.versions {
				if ov.Committed {
					oldRow = ov.Row
					break
				}
			}
			v.Committed = true
			rc.tbl.updateIndexes(rc.pkKey, oldRow, v.Row)
			return
		}
	}
}

// Vacuum drops versions which no live or future transaction could be
// required to read: committed versions older than the newest committed
// version at or below minLive, and the entire chain when it is empty or its
// newest version is a committed tombstone below minLive, provided the chain's
// read timestamp is also below minLive. It reports whether the chain was
// removed from the table.
func (rc *RowChain) Vacuum(minLive uint64) bool {
	rc.mutex.Lock()

	base := -1
	for vdx, v := range rc.versions {
		if v.Committed && v.WriteTS <= minLive {
			base = vdx
			break
		}
	}
	if base >= 0 && base+1 < len(rc.versions) {
		rc.versions = rc.versions[:base+1]
	}

	if len(rc.versions) > 0 {
		v := rc.versions[0]
		if v.Committed && v.Row == nil && v.WriteTS < minLive && rc.readTS < minLive {
			rc.versions = nil
		}
	}

	empty := len(rc.versions) == 0 && rc.readTS < minLive
	rc.mutex.Unlock()

	if empty {
		rc.tbl.removeChain(rc)
	}
	return empty
}
