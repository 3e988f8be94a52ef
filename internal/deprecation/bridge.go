// Package deprecation keeps legacy method names working by forwarding
// them to their canonical replacements with a warning.
package deprecation

import (
	"fmt"
	"reflect"
	"sort"
	"sync/atomic"

	"rltest/pkg/logging"
)

// Table maps legacy names to canonical names.
type Table map[string]string

// WarnFunc is called once per deprecated call.
type WarnFunc func(legacy, canonical string)

// Bridge holds a fixed Table and counts the warnings it emitted.
type Bridge struct {
	table    Table
	warn     WarnFunc
	warnings atomic.Int64
}

// New creates a Bridge. A nil warn logs through the Deprecation subsystem.
func New(table Table, warn WarnFunc) *Bridge {
	if warn == nil {
		warn = func(legacy, canonical string) {
			logging.Warn("Deprecation", "%s is deprecated, use %s instead", legacy, canonical)
		}
	}
	copied := make(Table, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return &Bridge{table: copied, warn: warn}
}

// Canonical returns the replacement for a legacy name.
func (b *Bridge) Canonical(legacy string) (string, bool) {
	c, ok := b.table[legacy]
	return c, ok
}

// Legacy returns every legacy name in sorted order.
func (b *Bridge) Legacy() []string {
	names := make([]string, 0, len(b.table))
	for k := range b.table {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Warnings returns how many deprecated calls went through the bridge.
func (b *Bridge) Warnings() int64 {
	return b.warnings.Load()
}

// Forward wraps canonical in a function of the same type that warns about
// the legacy name on every call and then calls canonical with the
// arguments unchanged. Results are returned as is and panics propagate.
//
// Forward panics when legacy is not in the bridge's table or canonical is
// not a non-nil function; both are wiring mistakes found at startup.
func Forward[F any](b *Bridge, legacy string, canonical F) F {
	target, ok := b.Canonical(legacy)
	if !ok {
		panic(fmt.Sprintf("deprecation: %q is not a known legacy name", legacy))
	}
	fn := reflect.ValueOf(canonical)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		panic(fmt.Sprintf("deprecation: canonical for %q is %T, not a function", legacy, canonical))
	}

	variadic := fn.Type().IsVariadic()
	wrapped := reflect.MakeFunc(fn.Type(), func(args []reflect.Value) []reflect.Value {
		b.warnings.Add(1)
		b.warn(legacy, target)
		if variadic {
			return fn.CallSlice(args)
		}
		return fn.Call(args)
	})
	return wrapped.Interface().(F)
}
