package config

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

type Value interface {
	Set(string) error
	String() string
}

type Var struct {
	Name string
	Val  Value
}

var (
	mutex sync.Mutex
	vars  = map[string]*Var{}
)

// Set updates a configuration variable from its string form.
func Set(name, val string) error {
	mutex.Lock()
	defer mutex.Unlock()

	v, ok := vars[name]
	if !ok {
		return fmt.Errorf("config: %s is not a config variable", name)
	}
	err := v.Val.Set(val)
	if err != nil {
		return fmt.Errorf("config: %s: %s", name, err)
	}
	return nil
}

// AllVars returns the registered variables sorted by name.
func AllVars() []*Var {
	mutex.Lock()
	defer mutex.Unlock()

	list := make([]*Var, 0, len(vars))
	for _, v := range vars {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func register(val Value, name string) {
	mutex.Lock()
	defer mutex.Unlock()

	if _, ok := vars[name]; ok {
		panic(fmt.Sprintf("config: variable redefined: %s", name))
	}
	vars[name] = &Var{Name: name, Val: val}
}

type intValue int

func (p *intValue) Set(s string) error {
	i, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*p = intValue(i)
	return nil
}

func (p *intValue) String() string {
	return strconv.Itoa(int(*p))
}

func IntVar(p *int, name string, i int) *int {
	*p = i
	register((*intValue)(p), name)
	return p
}

type uint64Value uint64

func (p *uint64Value) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*p = uint64Value(u)
	return nil
}

func (p *uint64Value) String() string {
	return strconv.FormatUint(uint64(*p), 10)
}

func Uint64Var(p *uint64, name string, u uint64) *uint64 {
	*p = u
	register((*uint64Value)(p), name)
	return p
}

type durationValue time.Duration

func (p *durationValue) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*p = durationValue(d)
	return nil
}

func (p *durationValue) String() string {
	return time.Duration(*p).String()
}

func DurationVar(p *time.Duration, name string, d time.Duration) *time.Duration {
	*p = d
	register((*durationValue)(p), name)
	return p
}

type boolValue bool

func (p *boolValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*p = boolValue(b)
	return nil
}

func (p *boolValue) String() string {
	return strconv.FormatBool(bool(*p))
}

func BoolVar(p *bool, name string, b bool) *bool {
	*p = b
	register((*boolValue)(p), name)
	return p
}
