package panel

import (
	"time"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/mabitter/tractor-sub000/pkg/visualizer"
)

// Layout is the persisted form of a Panel
type Layout struct {
	ID         string       `json:"id"`
	TypeID     types.TypeID `json:"typeId,omitempty"`
	TagFilter  string       `json:"tagFilter,omitempty"`
	Visualizer int          `json:"visualizer"`
	Options    []int        `json:"options,omitempty"`
	Created    time.Time    `json:"created"`
}

// Layout captures the panel's selections
func (p *Panel) Layout() *Layout {
	return &Layout{
		ID:         p.ID,
		TypeID:     p.TypeID,
		TagFilter:  p.TagFilter,
		Visualizer: p.VisualizerIndex,
		Options:    append([]int(nil), p.OptionIndices...),
		Created:    p.Created,
	}
}

// Restore rebuilds a panel from a saved layout. Selections that no longer
// fit the visualizer registry fall back to their defaults; an invalid tag
// filter is an error.
func Restore(vr *visualizer.Registry, l *Layout) (*Panel, error) {
	p := &Panel{ID: l.ID, Created: l.Created, visualizers: vr}
	p.SetEventType(l.TypeID)
	if err := p.SetTagFilter(l.TagFilter); err != nil {
		return nil, err
	}
	if err := p.SetVisualizer(l.Visualizer); err != nil {
		return p, nil
	}
	for i, choice := range l.Options {
		if err := p.SetOption(i, choice); err != nil {
			break
		}
	}
	return p, nil
}
