// Package cache provides byte-oriented caching for recipegraph.
//
// Three backends implement [Cache]:
//   - [FileCache] stores entries as JSON files under a directory (CLI default)
//   - [RedisCache] stores entries in Redis (shared by `serve` instances)
//   - [NullCache] never stores anything (--no-cache)
//
// Keys are produced by a [Keyer] from content hashes, so a changed input
// file or option yields a different key rather than a stale hit.
package cache

import (
	"context"
	"time"
)

// Default TTLs per artifact kind.
const (
	CommunitiesTTL = 24 * time.Hour
	RenderTTL      = 7 * 24 * time.Hour
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Keyer generates cache keys for pipeline artifacts.
type Keyer interface {
	// CommunitiesKey identifies a detection result for a graph.
	CommunitiesKey(graphHash string, opts CommunitiesKeyOpts) string
	// RenderKey identifies a rendered artifact of a labeled graph.
	RenderKey(labelsHash string, opts RenderKeyOpts) string
}

// CommunitiesKeyOpts are the detection options that change the result.
type CommunitiesKeyOpts struct {
	Method         string `json:"method"`
	FullDendrogram bool   `json:"full_dendrogram,omitempty"`
}

// RenderKeyOpts are the render options that change the output.
type RenderKeyOpts struct {
	Format     string `json:"format"`
	Detailed   bool   `json:"detailed,omitempty"`
	Quantities bool   `json:"quantities,omitempty"`
	RankDir    string `json:"rankdir,omitempty"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) CommunitiesKey(graphHash string, opts CommunitiesKeyOpts) string {
	return hashKey("communities", graphHash, opts)
}

func (DefaultKeyer) RenderKey(labelsHash string, opts RenderKeyOpts) string {
	return hashKey("render", labelsHash, opts)
}
