package storage_test

import (
	"testing"

	"github.com/leftmike/duet/sql"
	"github.com/leftmike/duet/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()

	st := storage.NewStore(sql.ID("teststore"))
	err := st.CreateTable(sql.ID("tbl"),
		[]sql.Identifier{sql.ID("id"), sql.ID("name"), sql.ID("qty")},
		[]sql.ColumnType{sql.IdColType, sql.StringColType, sql.NullInt64ColType},
		sql.ID("id"),
		[]storage.IndexSpec{{Column: sql.ID("name"), Unique: true}})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestCreateTable(t *testing.T) {
	st := testStore(t)

	// Idempotent by name.
	err := st.CreateTable(sql.ID("tbl"),
		[]sql.Identifier{sql.ID("id")}, []sql.ColumnType{sql.IdColType}, sql.ID("id"), nil)
	if err != nil {
		t.Errorf("CreateTable(tbl) failed with %s", err)
	}

	_, err = st.LookupTable(sql.ID("tbl"))
	if err != nil {
		t.Errorf("LookupTable(tbl) failed with %s", err)
	}
	_, err = st.LookupTable(sql.ID("missing"))
	if err == nil {
		t.Error("LookupTable(missing) did not fail")
	}

	err = st.CreateTable(sql.ID("bad"),
		[]sql.Identifier{sql.ID("id")}, []sql.ColumnType{sql.IdColType}, sql.ID("nope"), nil)
	if err == nil {
		t.Error("CreateTable(bad) did not fail")
	}
}

func TestConvertRow(t *testing.T) {
	st := testStore(t)
	tbl, err := st.LookupTable(sql.ID("tbl"))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		row  []sql.Value
		fail bool
	}{
		{[]sql.Value{sql.Int64Value(1), sql.StringValue("abc"), sql.Int64Value(10)}, false},
		{[]sql.Value{sql.Int64Value(2), sql.StringValue("def"), nil}, false},
		{[]sql.Value{sql.Int64Value(3), sql.StringValue("ghi")}, true},
		{[]sql.Value{sql.Int64Value(4), nil, nil}, true},
		{[]sql.Value{sql.StringValue("abc"), sql.StringValue("jkl"), nil}, true},
	}

	for _, c := range cases {
		_, err := tbl.ConvertRow(c.row)
		if c.fail {
			if err == nil {
				t.Errorf("ConvertRow(%v) did not fail", c.row)
			}
		} else if err != nil {
			t.Errorf("ConvertRow(%v) failed with %s", c.row, err)
		}
	}
}

func TestRowChain(t *testing.T) {
	st := testStore(t)
	tbl, err := st.LookupTable(sql.ID("tbl"))
	if err != nil {
		t.Fatal(err)
	}

	if rc := tbl.RowChain(sql.Int64Value(1), false); rc != nil {
		t.Error("RowChain(1, false) got a chain; want nil")
	}
	rc := tbl.RowChain(sql.Int64Value(1), true)
	if rc == nil {
		t.Fatal("RowChain(1, true) got nil")
	}
	if rc2 := tbl.RowChain(sql.Int64Value(1), false); rc2 != rc {
		t.Error("RowChain(1, false) did not return the same chain")
	}

	row1 := []sql.Value{sql.Int64Value(1), sql.StringValue("abc"), sql.Int64Value(10)}
	rc.Lock()
	rc.PutVersion(row1, 5)
	if u := rc.Uncommitted(); u == nil || u.WriteTS != 5 {
		t.Fatalf("Uncommitted() got %v want version at 5", u)
	}
	if v := rc.Newest(4); v != nil {
		t.Errorf("Newest(4) got %v want nil", v)
	}
	rc.CommitVersions(5)
	if u := rc.Uncommitted(); u != nil {
		t.Errorf("Uncommitted() got %v want nil", u)
	}
	if ts := rc.NewestCommittedTS(); ts != 5 {
		t.Errorf("NewestCommittedTS() got %d want 5", ts)
	}

	row2 := []sql.Value{sql.Int64Value(1), sql.StringValue("def"), sql.Int64Value(20)}
	rc.PutVersion(row2, 8)
	rc.CommitVersions(8)
	if v := rc.Newest(7); v == nil || v.WriteTS != 5 {
		t.Errorf("Newest(7) got %v want version at 5", v)
	}
	if v := rc.Newest(9); v == nil || v.WriteTS != 8 {
		t.Errorf("Newest(9) got %v want version at 8", v)
	}

	rc.PutVersion(nil, 12)
	rc.RemoveVersions(12)
	if v := rc.Newest(12); v == nil || v.WriteTS != 8 {
		t.Errorf("Newest(12) got %v want version at 8", v)
	}
	rc.Unlock()

	// The index follows committed rows.
	pks, err := tbl.IndexLookup(sql.ID("name"), sql.StringValue("def"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pks) != 1 || pks[0] != "1" {
		t.Errorf("IndexLookup(name, def) got %v want [1]", pks)
	}
	pks, err = tbl.IndexLookup(sql.ID("name"), sql.StringValue("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pks) != 0 {
		t.Errorf("IndexLookup(name, abc) got %v want none", pks)
	}

	err = tbl.CheckUnique("2", []sql.Value{sql.Int64Value(2), sql.StringValue("def"), nil})
	if err == nil {
		t.Error("CheckUnique(2, def) did not fail")
	}
	err = tbl.CheckUnique("1", row2)
	if err != nil {
		t.Errorf("CheckUnique(1, def) failed with %s", err)
	}
}

func TestVacuum(t *testing.T) {
	st := testStore(t)
	tbl, err := st.LookupTable(sql.ID("tbl"))
	if err != nil {
		t.Fatal(err)
	}

	rc := tbl.RowChain(sql.Int64Value(1), true)
	rc.Lock()
	for ts := uint64(1); ts <= 3; ts++ {
		rc.PutVersion([]sql.Value{sql.Int64Value(1), sql.StringValue("abc"),
			sql.Int64Value(int64(ts))}, ts)
		rc.CommitVersions(ts)
	}
	rc.Unlock()

	rc.Vacuum(10)
	rc.Lock()
	if v := rc.Newest(10); v == nil || v.WriteTS != 3 {
		t.Errorf("Newest(10) got %v want version at 3", v)
	}
	if v := rc.Newest(2); v != nil {
		t.Errorf("Newest(2) after vacuum got %v want nil", v)
	}
	rc.Unlock()

	// A committed tombstone below every live transaction removes the chain.
	rc.Lock()
	rc.PutVersion(nil, 5)
	rc.CommitVersions(5)
	rc.Unlock()
	if !rc.Vacuum(20) {
		t.Error("Vacuum(20) did not remove the tombstoned chain")
	}
	if rc2 := tbl.RowChain(sql.Int64Value(1), false); rc2 != nil {
		t.Error("RowChain(1, false) got a chain after vacuum; want nil")
	}
}
