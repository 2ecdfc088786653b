package visualization

import (
	"errors"
	"fmt"

	"github.com/mabitter/tractor-sub000/pkg/buffer"
	"github.com/mabitter/tractor-sub000/pkg/panel"
)

// ErrPanelNotFound is returned for an unknown panel ID
var ErrPanelNotFound = errors.New("panel not found")

// PanelStore persists panel layouts across sessions
type PanelStore interface {
	SavePanel(layout *panel.Layout) error
	ListPanels() ([]*panel.Layout, error)
	DeletePanel(id string) error
}

// RestorePanels installs the layouts saved in ps and persists every later
// panel change to it. Layouts that cannot be restored are skipped.
func (s *Store) RestorePanels(ps PanelStore) error {
	layouts, err := ps.ListPanels()
	if err != nil {
		return fmt.Errorf("failed to list saved panels: %w", err)
	}

	s.mu.Lock()
	s.panelStore = ps
	for _, l := range layouts {
		if _, ok := s.panels[l.ID]; ok {
			continue
		}
		p, err := panel.Restore(s.visualizers, l)
		if err != nil {
			s.logger.Warn().Err(err).Str("panel", l.ID).Msg("Skipping saved panel")
			continue
		}
		s.panels[p.ID] = p
		s.panelOrder = append(s.panelOrder, p.ID)
	}
	n := len(s.panels)
	s.mu.Unlock()

	s.logger.Debug().Int("panels", n).Msg("Panels restored")
	s.notify()
	return nil
}

// AddPanel creates an empty panel and returns a copy of it
func (s *Store) AddPanel() *panel.Panel {
	p := panel.New(s.visualizers)

	s.mu.Lock()
	s.panels[p.ID] = p
	s.panelOrder = append(s.panelOrder, p.ID)
	s.persistLocked(p)
	s.mu.Unlock()

	s.notify()
	return p.Clone()
}

// RemovePanel deletes a panel. It reports whether the panel existed.
func (s *Store) RemovePanel(id string) bool {
	s.mu.Lock()
	if _, ok := s.panels[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.panels, id)
	for i, pid := range s.panelOrder {
		if pid == id {
			s.panelOrder = append(s.panelOrder[:i:i], s.panelOrder[i+1:]...)
			break
		}
	}
	if s.panelStore != nil {
		if err := s.panelStore.DeletePanel(id); err != nil {
			s.logger.Warn().Err(err).Str("panel", id).Msg("Failed to delete saved panel")
		}
	}
	s.mu.Unlock()

	s.notify()
	return true
}

// Panel returns a copy of a panel
func (s *Store) Panel(id string) (*panel.Panel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.panels[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Panels returns copies of every panel in creation order
func (s *Store) Panels() []*panel.Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*panel.Panel, 0, len(s.panelOrder))
	for _, id := range s.panelOrder {
		out = append(out, s.panels[id].Clone())
	}
	return out
}

// UpdatePanel applies fn to a copy of a panel and commits the copy when fn
// succeeds, so a failed edit leaves the panel as it was.
func (s *Store) UpdatePanel(id string, fn func(p *panel.Panel) error) error {
	s.mu.Lock()
	p, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	cp := p.Clone()
	if err := fn(cp); err != nil {
		s.mu.Unlock()
		return err
	}
	s.panels[id] = cp
	s.persistLocked(cp)
	s.mu.Unlock()

	s.notify()
	return nil
}

// PanelStreams selects what a panel displays: the streams of its event
// type whose names pass its tag filter, each cut to the scrub window and
// throttled.
func (s *Store) PanelStreams(id string) (buffer.Streams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.panels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	if p.TypeID == "" || !s.hasRange {
		return buffer.Streams{}, nil
	}
	lo, hi := s.rangeMillisLocked()
	return buffer.Select(s.buf.Streams(p.TypeID), p.Matches, lo, hi, s.throttle), nil
}

// persistLocked requires s.mu
func (s *Store) persistLocked(p *panel.Panel) {
	if s.panelStore == nil {
		return
	}
	if err := s.panelStore.SavePanel(p.Layout()); err != nil {
		s.logger.Warn().Err(err).Str("panel", p.ID).Msg("Failed to save panel")
	}
}
