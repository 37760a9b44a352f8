package engine

import "context"

// MatchStore prefilters search scans: given a literal needle it returns
// the ordinals of episodes whose joined text contains it. Match offsets
// themselves are always computed in Go against the index snapshot.
type MatchStore interface {
	// Rebuild replaces the stored episode texts with the given snapshot.
	Rebuild(ctx context.Context, idx *Index) error
	// Candidates returns episode ordinals containing the literal needle.
	Candidates(ctx context.Context, needle string) ([]int, error)
	Close() error
}
