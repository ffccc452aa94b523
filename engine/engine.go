package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/duet/config"
	"github.com/leftmike/duet/flags"
	"github.com/leftmike/duet/sql"
	"github.com/leftmike/duet/storage"
	"github.com/leftmike/duet/txn"
)

type Options struct {
	MaxRestarts      int
	WaitTimeout      time.Duration
	GCInterval       time.Duration
	InitialTimestamp uint64
	Flags            flags.Flags
}

// DefaultOptions reads the process wide configuration.
func DefaultOptions() Options {
	return Options{
		MaxRestarts:      config.MaxRestarts(),
		WaitTimeout:      config.WaitTimeout(),
		GCInterval:       config.GCInterval(),
		InitialTimestamp: config.InitialTimestamp(),
		Flags:            flags.Default(),
	}
}

// Engine is the transaction coordinator: it owns the stores, the
// concurrency controller, and the retry loop, and commits transactions with
// a two phase commit over the participant stores.
type Engine struct {
	opts   Options
	cc     *txn.Controller
	mutex  sync.RWMutex
	stores map[sql.Identifier]*storage.Store

	committed uint64 // atomic
	aborted   uint64 // atomic
	restarts  uint64 // atomic

	stop chan struct{}
	wait sync.WaitGroup
}

type Stats struct {
	Active            int
	Committed         uint64
	Aborted           uint64
	Restarts          uint64
	DeadlocksDetected uint64
}

func NewEngine(opts Options) *Engine {
	cc := txn.NewController(opts.InitialTimestamp, opts.WaitTimeout,
		opts.Flags.GetFlag(flags.ReadWait))
	return &Engine{
		opts:   opts,
		cc:     cc,
		stores: map[sql.Identifier]*storage.Store{},
	}
}

// Start installs the bootstrap schema and launches the vacuum loop.
func (e *Engine) Start() error {
	err := e.bootstrap()
	if err != nil {
		return err
	}

	e.stop = make(chan struct{})
	e.wait.Add(1)
	go e.vacuumLoop()

	log.WithFields(log.Fields{
		"max_restarts": e.opts.MaxRestarts,
		"wait_timeout": e.opts.WaitTimeout,
		"gc_interval":  e.opts.GCInterval,
	}).Info("engine started")
	return nil
}

func (e *Engine) Stop() {
	if e.stop != nil {
		close(e.stop)
		e.wait.Wait()
		e.stop = nil
	}
	log.Info("engine stopped")
}

func (e *Engine) CreateStore(name sql.Identifier) (*storage.Store, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, ok := e.stores[name]; ok {
		return nil, fmt.Errorf("engine: store %s already exists", name)
	}
	st := storage.NewStore(name)
	e.stores[name] = st
	return st, nil
}

func (e *Engine) Store(name sql.Identifier) (*storage.Store, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	st, ok := e.stores[name]
	if !ok {
		return nil, fmt.Errorf("engine: store %s not found", name)
	}
	return st, nil
}

func (e *Engine) ListStores() []*storage.Store {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	stores := make([]*storage.Store, 0, len(e.stores))
	for _, st := range e.stores {
		stores = append(stores, st)
	}
	sort.Slice(stores, func(i, j int) bool {
		return stores[i].Name().String() < stores[j].Name().String()
	})
	return stores
}

func (e *Engine) Stats() Stats {
	return Stats{
		Active:            e.cc.LiveCount(),
		Committed:         atomic.LoadUint64(&e.committed),
		Aborted:           atomic.LoadUint64(&e.aborted),
		Restarts:          atomic.LoadUint64(&e.restarts),
		DeadlocksDetected: e.cc.Deadlocks(),
	}
}

// Begin opens a transaction with the next timestamp.
func (e *Engine) Begin() *Tx {
	return &Tx{
		e:  e,
		tx: e.cc.Begin(),
	}
}

// Run executes body in a transaction, committing it when body returns nil.
// The body is re-run with a fresh timestamp after a restartable abort, up to
// the restart bound; it must be idempotent and free of external side
// effects. Errors which are not aborts abort the transaction and surface
// unchanged.
func (e *Engine) Run(ctx context.Context, body func(tx *Tx) error) error {
	var restarts int
	for {
		tx := e.Begin()
		err := body(tx)
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err == nil {
			return nil
		}

		ae, ok := txn.IsAborted(err)
		if !ok {
			tx.abort(txn.UserAbort, err)
			return err
		}
		if !tx.complete {
			tx.abort(ae.Cause, ae.Err)
		}
		if !ae.Cause.Restartable() {
			return err
		}
		if restarts >= e.opts.MaxRestarts {
			ae.Exhausted = true
			log.WithFields(log.Fields{
				"cause":    ae.Cause.String(),
				"restarts": restarts,
			}).Warn("transaction restarts exhausted")
			return ae
		}

		restarts += 1
		atomic.AddUint64(&e.restarts, 1)
		log.WithFields(log.Fields{
			"cause":   ae.Cause.String(),
			"restart": restarts,
		}).Info("restarting transaction")
	}
}

func (e *Engine) vacuumLoop() {
	defer e.wait.Done()

	ticker := time.NewTicker(e.opts.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Vacuum()
		case <-e.stop:
			return
		}
	}
}

// Vacuum opportunistically drops versions which no live or future
// transaction could be required to read.
func (e *Engine) Vacuum() {
	minLive := e.cc.MinLiveTS()
	var removed int
	for _, st := range e.ListStores() {
		for _, tblname := range st.ListTables() {
			tbl, err := st.LookupTable(tblname)
			if err != nil {
				continue
			}
			for _, rc := range tbl.Chains() {
				if rc.Vacuum(minLive) {
					removed += 1
				}
			}
		}
	}
	if removed > 0 {
		log.WithFields(log.Fields{"chains": removed, "min_live": minLive}).
			Debug("vacuumed chains")
	}
}
