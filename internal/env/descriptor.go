package env

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"rltest/internal/config"
)

// Descriptor identifies a requested environment. Two descriptors are
// interchangeable exactly when Equal reports true.
type Descriptor struct {
	Topology    config.Topology
	Module      string
	ModuleArgs  []string
	UseReplicas bool
	Shards      int
	UseAOF      bool
}

// Equal compares all six identity fields. Module arguments compare in
// order. Binaries and the log directory are not part of the identity.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.Topology == o.Topology &&
		d.Module == o.Module &&
		slices.Equal(d.ModuleArgs, o.ModuleArgs) &&
		d.UseReplicas == o.UseReplicas &&
		d.Shards == o.Shards &&
		d.UseAOF == o.UseAOF
}

func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteString(string(d.Topology))
	if d.Module != "" {
		fmt.Fprintf(&b, " module=%s", d.Module)
		if len(d.ModuleArgs) > 0 {
			fmt.Fprintf(&b, " args=%s", strings.Join(d.ModuleArgs, " "))
		}
	}
	if d.Shards > 1 {
		fmt.Fprintf(&b, " shards=%d", d.Shards)
	}
	if d.UseReplicas {
		b.WriteString(" replicas")
	}
	if d.UseAOF {
		b.WriteString(" aof")
	}
	return b.String()
}

// Options are the per-test overrides of the configured defaults. Zero
// values fall back to the defaults; the boolean switches are pointers so
// that an explicit false can override a true default.
type Options struct {
	Topology    string
	Module      string
	ModuleArgs  []string
	UseReplicas *bool
	Shards      int
	UseAOF      *bool
}

// Bool returns a pointer to v, for Options fields.
func Bool(v bool) *bool { return &v }

// Resolve fills unset options from defaults and validates the result.
func Resolve(o Options, d config.Defaults) (Descriptor, error) {
	desc := Descriptor{
		Topology:    d.Env,
		Module:      d.Module,
		ModuleArgs:  d.ModuleArgs,
		UseReplicas: d.UseReplicas,
		Shards:      d.Shards,
		UseAOF:      d.UseAOF,
	}
	if o.Topology != "" {
		desc.Topology = config.Topology(o.Topology)
	}
	if o.Module != "" {
		desc.Module = o.Module
	}
	if len(o.ModuleArgs) > 0 {
		desc.ModuleArgs = o.ModuleArgs
	}
	if o.UseReplicas != nil {
		desc.UseReplicas = *o.UseReplicas
	}
	if o.Shards > 0 {
		desc.Shards = o.Shards
	}
	if o.UseAOF != nil {
		desc.UseAOF = *o.UseAOF
	}

	desc.ModuleArgs = slices.Clone(desc.ModuleArgs)
	if desc.ModuleArgs == nil {
		desc.ModuleArgs = []string{}
	}

	var errs []error
	if _, err := config.ParseTopology(string(desc.Topology)); err != nil {
		errs = append(errs, err)
	}
	if desc.Shards < 1 {
		errs = append(errs, fmt.Errorf("shard count must be at least 1, got %d", desc.Shards))
	}
	if err := errors.Join(errs...); err != nil {
		return Descriptor{}, err
	}
	return desc, nil
}
