package visualizer

import (
	"strings"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Capability describes what a renderer can consume
type Capability uint8

const (
	// Single renders one (timestamp, value) pair
	Single Capability = 1 << iota
	// Sequence renders a whole stream of (timestamp, value) pairs
	Sequence
)

// Has reports whether all bits of o are set
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

func (c Capability) String() string {
	var parts []string
	if c.Has(Single) {
		parts = append(parts, "single")
	}
	if c.Has(Sequence) {
		parts = append(parts, "sequence")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Option is a user-selectable renderer setting
type Option struct {
	Label   string
	Choices []string
}

// Visualizer describes a renderer. What it draws is outside the core.
type Visualizer struct {
	Name         string
	Types        []types.TypeID // empty means any type
	Capabilities Capability
	Options      []Option
}

// Generic reports whether the visualizer accepts every type
func (v Visualizer) Generic() bool {
	return len(v.Types) == 0
}

// Accepts reports whether the visualizer can render a type
func (v Visualizer) Accepts(id types.TypeID) bool {
	if v.Generic() {
		return true
	}
	for _, t := range v.Types {
		if t == id {
			return true
		}
	}
	return false
}

// Registry is an ordered, immutable list of visualizers
type Registry struct {
	visualizers []Visualizer
}

// NewRegistry creates a registry; order is preserved
func NewRegistry(visualizers ...Visualizer) *Registry {
	return &Registry{visualizers: append([]Visualizer(nil), visualizers...)}
}

// ForType returns the visualizers that can render a type: type-specific
// ones first, generic fallbacks last.
func (r *Registry) ForType(id types.TypeID) []Visualizer {
	var specific, generic []Visualizer
	for _, v := range r.visualizers {
		switch {
		case v.Generic():
			generic = append(generic, v)
		case v.Accepts(id):
			specific = append(specific, v)
		}
	}
	return append(specific, generic...)
}

// All returns every registered visualizer
func (r *Registry) All() []Visualizer {
	return append([]Visualizer(nil), r.visualizers...)
}

var scalarTypes = []types.TypeID{
	types.TypeIDOf(&wrapperspb.DoubleValue{}),
	types.TypeIDOf(&wrapperspb.FloatValue{}),
	types.TypeIDOf(&wrapperspb.Int64Value{}),
	types.TypeIDOf(&wrapperspb.UInt64Value{}),
	types.TypeIDOf(&wrapperspb.Int32Value{}),
	types.TypeIDOf(&wrapperspb.UInt32Value{}),
}

// Default returns the compiled-in visualizers
func Default() *Registry {
	return NewRegistry(
		Visualizer{
			Name:         "Plot",
			Types:        scalarTypes,
			Capabilities: Sequence,
			Options: []Option{
				{Label: "window", Choices: []string{"10s", "1m", "5m"}},
				{Label: "style", Choices: []string{"line", "scatter"}},
			},
		},
		Visualizer{
			Name:         "Status",
			Types:        []types.TypeID{types.TypeIDOf(&wrapperspb.BoolValue{}), types.TypeIDOf(&wrapperspb.StringValue{})},
			Capabilities: Single | Sequence,
		},
		Visualizer{
			Name:         "Table",
			Types:        []types.TypeID{types.TypeIDOf(&structpb.Struct{})},
			Capabilities: Single,
			Options:      []Option{{Label: "layout", Choices: []string{"flat", "nested"}}},
		},
		Visualizer{
			Name:         "Clock",
			Types:        []types.TypeID{types.TypeIDOf(&timestamppb.Timestamp{})},
			Capabilities: Single,
		},
		Visualizer{
			Name:         "Timeline",
			Capabilities: Sequence,
		},
		Visualizer{
			Name:         "JSON",
			Capabilities: Single | Sequence,
			Options:      []Option{{Label: "indent", Choices: []string{"compact", "pretty"}}},
		},
	)
}
