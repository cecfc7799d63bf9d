package cache

import (
	"github.com/matzehuels/analogplace/pkg/config"
)

// Keyer derives cache keys. problemHash identifies the problem input,
// usually the [Hash] of the problem file.
type Keyer interface {
	PlacementKey(problemHash string, opts PlacementKeyOpts) string
	ArtifactKey(problemHash string, opts ArtifactKeyOpts) string
}

// PlacementKeyOpts holds every setting that changes a solved placement.
// Worker counts and cache settings are left out.
type PlacementKeyOpts struct {
	Alpha         float64         `json:"alpha"`
	SharedSymAxis bool            `json:"shared_sym_axis"`
	Lambda        config.Lambdas  `json:"lambda"`
	Solver        config.Solver   `json:"solver"`
	Init          config.Init     `json:"init"`
	Escalate      config.Escalate `json:"escalate"`
	ChunkSize     int             `json:"chunk_size"`
}

// PlacementOpts extracts the placement-relevant part of c.
func PlacementOpts(c config.Config) PlacementKeyOpts {
	return PlacementKeyOpts{
		Alpha:         c.Alpha,
		SharedSymAxis: c.SharedSymAxis,
		Lambda:        c.Lambda,
		Solver:        c.Solver,
		Init:          c.Init,
		Escalate:      c.Escalate,
		ChunkSize:     c.Exec.ChunkSize,
	}
}

// ArtifactKeyOpts identifies a rendered task graph.
type ArtifactKeyOpts struct {
	Graph    string `json:"graph"`
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer hashes the problem hash and options into a prefixed key.
type DefaultKeyer struct{}

func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) PlacementKey(problemHash string, opts PlacementKeyOpts) string {
	return hashKey("placement", problemHash, opts)
}

func (DefaultKeyer) ArtifactKey(problemHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", problemHash, opts)
}

// ScopedKeyer prefixes every key of an inner keyer, giving placers that
// share one Redis instance separate namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or a [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) PlacementKey(problemHash string, opts PlacementKeyOpts) string {
	return k.prefix + k.inner.PlacementKey(problemHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(problemHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(problemHash, opts)
}
