package panel

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/mabitter/tractor-sub000/pkg/visualizer"
)

var (
	// ErrInvalidFilter is returned when a tag filter is not a valid regular expression
	ErrInvalidFilter = errors.New("invalid tag filter")

	// ErrOutOfRange is returned when a visualizer or option index does not exist
	ErrOutOfRange = errors.New("selection out of range")
)

// Panel is the selection state of one operator view: which event type,
// which streams of it, and how to render them. A Panel is not safe for
// concurrent use; the visualization store serializes access.
type Panel struct {
	ID              string
	TypeID          types.TypeID
	TagFilter       string
	VisualizerIndex int
	OptionIndices   []int
	Created         time.Time

	filter      *regexp.Regexp
	visualizers *visualizer.Registry
}

// New creates an empty panel with a fresh ID
func New(vr *visualizer.Registry) *Panel {
	return &Panel{
		ID:          uuid.New().String(),
		Created:     time.Now(),
		visualizers: vr,
	}
}

// SetEventType selects the event type and resets the visualizer and its
// options, since the list of visualizers depends on the type.
func (p *Panel) SetEventType(id types.TypeID) {
	p.TypeID = id
	p.VisualizerIndex = 0
	p.resetOptions()
}

// SetTagFilter sets the regular expression stream names must match. An
// empty expression matches everything. On error the previous filter stays.
func (p *Panel) SetTagFilter(expr string) error {
	if expr == "" {
		p.TagFilter, p.filter = "", nil
		return nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	p.TagFilter, p.filter = expr, re
	return nil
}

// SetVisualizer selects one of Visualizers() and resets its options
func (p *Panel) SetVisualizer(i int) error {
	if i < 0 || i >= len(p.Visualizers()) {
		return fmt.Errorf("%w: visualizer %d", ErrOutOfRange, i)
	}
	p.VisualizerIndex = i
	p.resetOptions()
	return nil
}

// SetOption selects a choice for one option of the current visualizer
func (p *Panel) SetOption(option, choice int) error {
	v, ok := p.Visualizer()
	if !ok || option < 0 || option >= len(v.Options) {
		return fmt.Errorf("%w: option %d", ErrOutOfRange, option)
	}
	if choice < 0 || choice >= len(v.Options[option].Choices) {
		return fmt.Errorf("%w: choice %d of %q", ErrOutOfRange, choice, v.Options[option].Label)
	}
	p.OptionIndices[option] = choice
	return nil
}

// Matches reports whether a stream name passes the tag filter
func (p *Panel) Matches(name string) bool {
	return p.filter == nil || p.filter.MatchString(name)
}

// Visualizers returns the renderers available for the selected type
func (p *Panel) Visualizers() []visualizer.Visualizer {
	if p.TypeID == "" || p.visualizers == nil {
		return nil
	}
	return p.visualizers.ForType(p.TypeID)
}

// Visualizer returns the selected renderer
func (p *Panel) Visualizer() (visualizer.Visualizer, bool) {
	vs := p.Visualizers()
	if p.VisualizerIndex < 0 || p.VisualizerIndex >= len(vs) {
		return visualizer.Visualizer{}, false
	}
	return vs[p.VisualizerIndex], true
}

// SelectedOptions returns the chosen value of every option of the
// selected renderer, keyed by option label
func (p *Panel) SelectedOptions() map[string]string {
	v, ok := p.Visualizer()
	if !ok {
		return nil
	}
	out := make(map[string]string, len(v.Options))
	for i, opt := range v.Options {
		if i < len(p.OptionIndices) && p.OptionIndices[i] < len(opt.Choices) {
			out[opt.Label] = opt.Choices[p.OptionIndices[i]]
		}
	}
	return out
}

// Clone returns an independent copy
func (p *Panel) Clone() *Panel {
	cp := *p
	cp.OptionIndices = append([]int(nil), p.OptionIndices...)
	return &cp
}

func (p *Panel) resetOptions() {
	v, ok := p.Visualizer()
	if !ok {
		p.OptionIndices = nil
		return
	}
	p.OptionIndices = make([]int, len(v.Options))
}
