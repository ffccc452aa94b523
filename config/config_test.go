package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leftmike/duet/config"
)

func TestSet(t *testing.T) {
	defer func() {
		config.Set("max_restarts", "5")
		config.Set("wait_timeout", "2s")
	}()

	if config.MaxRestarts() != 5 {
		t.Errorf("MaxRestarts() got %d want 5", config.MaxRestarts())
	}
	if config.WaitTimeout() != 2*time.Second {
		t.Errorf("WaitTimeout() got %s want 2s", config.WaitTimeout())
	}
	if config.GCInterval() != time.Second {
		t.Errorf("GCInterval() got %s want 1s", config.GCInterval())
	}
	if config.InitialTimestamp() != 1 {
		t.Errorf("InitialTimestamp() got %d want 1", config.InitialTimestamp())
	}

	err := config.Set("max_restarts", "3")
	if err != nil {
		t.Fatal(err)
	}
	if config.MaxRestarts() != 3 {
		t.Errorf("MaxRestarts() got %d want 3", config.MaxRestarts())
	}

	err = config.Set("max_restarts", "abc")
	if err == nil {
		t.Error("Set(max_restarts, abc) did not fail")
	}
	err = config.Set("no_such_variable", "1")
	if err == nil {
		t.Error("Set(no_such_variable, 1) did not fail")
	}
}

func TestLoad(t *testing.T) {
	defer func() {
		config.Set("max_restarts", "5")
		config.Set("wait_timeout", "2s")
	}()

	dir, err := ioutil.TempDir("", "config_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	fn := filepath.Join(dir, "duet.hcl")
	err = ioutil.WriteFile(fn, []byte(`
max_restarts = 7
wait_timeout = "250ms"
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	err = config.Load(fn)
	if err != nil {
		t.Fatal(err)
	}
	if config.MaxRestarts() != 7 {
		t.Errorf("MaxRestarts() got %d want 7", config.MaxRestarts())
	}
	if config.WaitTimeout() != 250*time.Millisecond {
		t.Errorf("WaitTimeout() got %s want 250ms", config.WaitTimeout())
	}

	err = config.Load(filepath.Join(dir, "missing.hcl"))
	if !os.IsNotExist(err) {
		t.Errorf("Load(missing) got %v want not exist", err)
	}
}

func TestAllVars(t *testing.T) {
	vars := config.AllVars()
	if len(vars) == 0 {
		t.Fatal("AllVars() got none")
	}
	for vdx := 1; vdx < len(vars); vdx++ {
		if vars[vdx-1].Name >= vars[vdx].Name {
			t.Errorf("AllVars() not sorted: %s before %s", vars[vdx-1].Name, vars[vdx].Name)
		}
	}
}
