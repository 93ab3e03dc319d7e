// Package voting tallies ranked ballots into a group ranking.
//
// Two methods are supported: ranked pairs (Tideman) and Borda count. Borda
// points are always computed and returned alongside the ranking, even when
// ranked pairs decides the order.
package voting

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm selects how a room's ballots are turned into ranks.
type Algorithm string

const (
	RankedPairs Algorithm = "ranked_pairs"
	Borda       Algorithm = "borda"
)

// DefaultAlgorithm is used when a room is created without choosing one.
const DefaultAlgorithm = RankedPairs

var ErrUnknownAlgorithm = errors.New("unknown ranking algorithm")

// ParseAlgorithm maps a client-supplied name to an Algorithm.
// The empty string selects DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultAlgorithm, nil
	case RankedPairs:
		return RankedPairs, nil
	case Borda:
		return Borda, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Ballot is one player's ordering of the ideas, best first.
type Ballot []string

// Result is the outcome of a tally.
type Result struct {
	Algorithm Algorithm
	// Ranks maps idea to rank. Rank 1 is best; tied ideas share a rank.
	Ranks map[string]int
	// Points maps idea to its Borda score.
	Points map[string]int
	// Locked holds the edges kept by ranked pairs, in locking order.
	// Empty for Borda.
	Locked []Pairwise
}

// Tally runs the chosen algorithm over ideas and ballots.
func Tally(alg Algorithm, ideas []string, ballots []Ballot) (Result, error) {
	points := BordaPoints(ideas, ballots)

	switch alg {
	case Borda:
		return Result{
			Algorithm: Borda,
			Ranks:     RankByPoints(points),
			Points:    points,
		}, nil
	case RankedPairs:
		pairs := PairwiseResults(ideas, ballots)
		locked := LockPairs(ideas, pairs)
		return Result{
			Algorithm: RankedPairs,
			Ranks:     Layers(ideas, locked),
			Points:    points,
			Locked:    locked,
		}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// index assigns each distinct idea a small integer, in first-seen order.
func index(ideas []string) (map[string]int, []string) {
	idx := make(map[string]int, len(ideas))
	names := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		if _, ok := idx[idea]; ok {
			continue
		}
		idx[idea] = len(names)
		names = append(names, idea)
	}
	return idx, names
}
