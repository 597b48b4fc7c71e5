package kb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
)

// Holder owns the current store snapshot. Readers never block and always see
// a complete snapshot; reloads build a new store and swap the pointer.
type Holder struct {
	current  atomic.Pointer[Store]
	loader   Loader
	reloadMu sync.Mutex
	loadedAt atomic.Int64
	logger   *logrus.Logger
}

// NewHolder creates a holder serving initial. loader may be nil when reloads
// are not supported.
func NewHolder(initial *Store, loader Loader, logger *logrus.Logger) *Holder {
	if initial == nil {
		initial = NewEmptyStore()
	}
	h := &Holder{
		loader: loader,
		logger: logger,
	}
	h.current.Store(initial)
	h.loadedAt.Store(time.Now().UnixNano())
	return h
}

// Current returns the snapshot in use.
func (h *Holder) Current() *Store {
	return h.current.Load()
}

// Catalog implements domain.CatalogProvider.
func (h *Holder) Catalog() domain.FrameCatalog {
	return h.current.Load()
}

// LoadedAt reports when the current snapshot was installed.
func (h *Holder) LoadedAt() time.Time {
	return time.Unix(0, h.loadedAt.Load())
}

// Swap installs next and returns the snapshot it replaced.
func (h *Holder) Swap(next *Store) *Store {
	prev := h.current.Swap(next)
	h.loadedAt.Store(time.Now().UnixNano())

	h.logger.WithFields(logrus.Fields{
		"previous_version": prev.Version(),
		"version":          next.Version(),
		"frames":           next.Len(),
	}).Info("Frame store snapshot swapped")
	return prev
}

// Reload builds a new snapshot with the configured loader and installs it.
// On failure the current snapshot stays in place.
func (h *Holder) Reload(ctx context.Context) (*Store, error) {
	if h.loader == nil {
		return nil, fmt.Errorf("frame store reload is not configured: %w", domain.ErrUnavailable)
	}

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := h.loader(ctx)
	if err != nil {
		h.logger.WithError(err).WithField("version", h.Current().Version()).Warn("Frame store reload failed, keeping current snapshot")
		return nil, err
	}

	h.Swap(next)
	return next, nil
}
