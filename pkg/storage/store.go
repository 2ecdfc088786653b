package storage

import (
	"errors"

	"github.com/mabitter/tractor-sub000/pkg/panel"
)

// ErrNotFound is returned when a key is not stored
var ErrNotFound = errors.New("not found")

// Store defines the interface for console state kept across sessions
type Store interface {
	// Resource cache
	PutBlob(key string, data []byte) error
	GetBlob(key string) ([]byte, error)
	ListBlobs() ([]string, error)
	DeleteBlob(key string) error

	// Panel layouts
	SavePanel(layout *panel.Layout) error
	GetPanel(id string) (*panel.Layout, error)
	ListPanels() ([]*panel.Layout, error)
	DeletePanel(id string) error

	// Utility
	Close() error
}
