package flags

import (
	"strings"

	"github.com/leftmike/duet/config"
)

type Flag int

const (
	// ReadWait controls how a read resolves an uncommitted peer version:
	// wait for the writer and re-read (the default), or abort the reader
	// with a timestamp ordering violation.
	ReadWait Flag = iota
)

type flagDefault struct {
	flag Flag
	def  bool
}

var (
	defaultFlags = map[string]flagDefault{
		"read_wait": {ReadWait, true},
	}
	configFlags = makeConfigFlags()
)

func makeConfigFlags() Flags {
	flgs := make([]bool, len(defaultFlags))
	for nam, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
		config.BoolVar(&flgs[fd.flag], nam, fd.def)
	}
	return flgs
}

func LookupFlag(nam string) (Flag, bool) {
	fd, ok := defaultFlags[strings.ToLower(nam)]
	return fd.flag, ok
}

func ListFlags(fn func(nam string, f Flag)) {
	for nam, fd := range defaultFlags {
		fn(nam, fd.flag)
	}
}

type Flags []bool

func (flgs Flags) GetFlag(f Flag) bool {
	return flgs[f]
}

func (flgs Flags) SetFlag(f Flag, b bool) {
	flgs[f] = b
}

// Default returns the flags as configured for the process.
func Default() Flags {
	flgs := make([]bool, len(configFlags))
	copy(flgs, configFlags)
	return flgs
}
