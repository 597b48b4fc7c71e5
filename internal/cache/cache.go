// Package cache keeps diagnosis results keyed by frame snapshot and
// normalized finding set. Keys embed the snapshot version, so a reload never
// serves results computed against an older hierarchy.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/pkg/findings"
)

const keyPrefix = "framedx:diagnosis:"

// Cache stores full (untrimmed) diagnosis results. Implementations must be
// safe for concurrent use. Results handed out are shared and read-only.
type Cache interface {
	Get(ctx context.Context, key string) (*domain.DiagnosisResult, bool)
	Set(ctx context.Context, key string, result *domain.DiagnosisResult)
	Len() int
}

// Key builds the cache key for a finding set evaluated against a snapshot.
func Key(snapshotVersion string, present findings.Set) string {
	sum := sha256.Sum256([]byte(present.Key()))
	return keyPrefix + snapshotVersion + ":" + hex.EncodeToString(sum[:])
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.DiagnosisResult, bool) { return nil, false }
func (Noop) Set(context.Context, string, *domain.DiagnosisResult)        {}
func (Noop) Len() int                                                     { return 0 }

// Tiered reads from the first tier that has an entry and backfills the tiers
// in front of it. Writes go to every tier.
type Tiered struct {
	tiers []Cache
}

// NewTiered creates a tiered cache; nil tiers are skipped.
func NewTiered(tiers ...Cache) *Tiered {
	t := &Tiered{}
	for _, c := range tiers {
		if c != nil {
			t.tiers = append(t.tiers, c)
		}
	}
	return t
}

// Get implements Cache.
func (t *Tiered) Get(ctx context.Context, key string) (*domain.DiagnosisResult, bool) {
	for i, c := range t.tiers {
		if result, ok := c.Get(ctx, key); ok {
			for j := 0; j < i; j++ {
				t.tiers[j].Set(ctx, key, result)
			}
			return result, true
		}
	}
	return nil, false
}

// Set implements Cache.
func (t *Tiered) Set(ctx context.Context, key string, result *domain.DiagnosisResult) {
	for _, c := range t.tiers {
		c.Set(ctx, key, result)
	}
}

// Len reports the size of the first tier.
func (t *Tiered) Len() int {
	if len(t.tiers) == 0 {
		return 0
	}
	return t.tiers[0].Len()
}
