package config

import (
	"time"
)

// Process wide configuration of the transaction engine.
var (
	maxRestarts      int
	waitTimeout      time.Duration
	gcInterval       time.Duration
	initialTimestamp uint64
)

func init() {
	IntVar(&maxRestarts, "max_restarts", 5)
	DurationVar(&waitTimeout, "wait_timeout", 2*time.Second)
	DurationVar(&gcInterval, "gc_interval", time.Second)
	Uint64Var(&initialTimestamp, "initial_timestamp", 1)
}

// MaxRestarts bounds the coordinator's abort and restart loop.
func MaxRestarts() int {
	return maxRestarts
}

// WaitTimeout bounds every wait on an uncommitted peer version.
func WaitTimeout() time.Duration {
	return waitTimeout
}

// GCInterval is the period of the version vacuum loop.
func GCInterval() time.Duration {
	return gcInterval
}

// InitialTimestamp seeds the transaction timestamp counter.
func InitialTimestamp() uint64 {
	return initialTimestamp
}
