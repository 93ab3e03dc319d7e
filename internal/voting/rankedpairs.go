package voting

import "sort"

// Pairwise is the head-to-head outcome between two ideas.
type Pairwise struct {
	Winner string
	Loser  string
	Margin int
}

// PairwiseResults compares every pair of distinct ideas across all ballots.
//
// For a pair (A, B) it counts the ballots placing A strictly before B and
// the ballots placing B strictly before A. Ballots missing either idea do not
// count for that pair. Equal counts record nothing. An idea is never compared
// with itself.
//
// The result is sorted by descending margin. Equal margins are ordered by
// winner, then loser, lexically, so the output is reproducible.
func PairwiseResults(ideas []string, ballots []Ballot) []Pairwise {
	idx, names := index(ideas)
	n := len(names)

	// prefer[i][j] = ballots ranking i strictly before j
	prefer := make([][]int, n)
	for i := range prefer {
		prefer[i] = make([]int, n)
	}

	for _, ballot := range ballots {
		pos := make([]int, n)
		for i := range pos {
			pos[i] = -1
		}
		for p, idea := range ballot {
			if i, ok := idx[idea]; ok && pos[i] < 0 {
				pos[i] = p
			}
		}
		for i := 0; i < n; i++ {
			if pos[i] < 0 {
				continue
			}
			for j := 0; j < n; j++ {
				if i == j || pos[j] < 0 {
					continue
				}
				if pos[i] < pos[j] {
					prefer[i][j]++
				}
			}
		}
	}

	var pairs []Pairwise
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := prefer[i][j], prefer[j][i]
			switch {
			case a > b:
				pairs = append(pairs, Pairwise{Winner: names[i], Loser: names[j], Margin: a - b})
			case b > a:
				pairs = append(pairs, Pairwise{Winner: names[j], Loser: names[i], Margin: b - a})
			}
		}
	}

	sort.Slice(pairs, func(x, y int) bool {
		px, py := pairs[x], pairs[y]
		if px.Margin != py.Margin {
			return px.Margin > py.Margin
		}
		if px.Winner != py.Winner {
			return px.Winner < py.Winner
		}
		return px.Loser < py.Loser
	})
	return pairs
}

// LockPairs walks pairs in order and keeps every edge winner -> loser that
// does not close a cycle in the edges kept so far. pairs must already be
// sorted (see PairwiseResults).
func LockPairs(ideas []string, pairs []Pairwise) []Pairwise {
	idx, names := index(ideas)
	g := newGraph(len(names))

	locked := make([]Pairwise, 0, len(pairs))
	for _, p := range pairs {
		w, okW := idx[p.Winner]
		l, okL := idx[p.Loser]
		if !okW || !okL || w == l {
			continue
		}
		if g.reaches(l, w) {
			continue
		}
		g.addEdge(w, l)
		locked = append(locked, p)
	}
	return locked
}

// Layers ranks ideas from the locked edges by peeling off, layer by layer,
// every idea no remaining edge points to. Each layer shares one rank,
// starting at 1. Ideas with no edges land in the first layer.
func Layers(ideas []string, locked []Pairwise) map[string]int {
	idx, names := index(ideas)
	g := newGraph(len(names))
	for _, p := range locked {
		w, okW := idx[p.Winner]
		l, okL := idx[p.Loser]
		if !okW || !okL {
			continue
		}
		g.addEdge(w, l)
	}

	indeg := make([]int, len(names))
	for _, targets := range g.adj {
		for _, t := range targets {
			indeg[t]++
		}
	}

	ranks := make(map[string]int, len(names))
	done := make([]bool, len(names))
	remaining := len(names)
	rank := 1

	for remaining > 0 {
		var layer []int
		for i := range names {
			if !done[i] && indeg[i] == 0 {
				layer = append(layer, i)
			}
		}
		if len(layer) == 0 {
			// Only reachable with a cyclic edge set, which LockPairs never
			// produces. Rank whatever is left together.
			for i := range names {
				if !done[i] {
					ranks[names[i]] = rank
				}
			}
			break
		}
		for _, i := range layer {
			done[i] = true
			remaining--
			ranks[names[i]] = rank
			for _, t := range g.adj[i] {
				indeg[t]--
			}
		}
		rank++
	}
	return ranks
}

type graph struct {
	adj [][]int
}

func newGraph(n int) *graph {
	return &graph{adj: make([][]int, n)}
}

func (g *graph) addEdge(from, to int) {
	g.adj[from] = append(g.adj[from], to)
}

// reaches reports whether to is reachable from from, using an explicit stack.
func (g *graph) reaches(from, to int) bool {
	if from == to {
		return true
	}
	seen := make([]bool, len(g.adj))
	stack := []int{from}
	seen[from] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.adj[n] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// HasCycle reports whether the edges contain a directed cycle.
func HasCycle(ideas []string, edges []Pairwise) bool {
	idx, names := index(ideas)
	g := newGraph(len(names))
	for _, e := range edges {
		w, okW := idx[e.Winner]
		l, okL := idx[e.Loser]
		if !okW || !okL {
			continue
		}
		if g.reaches(l, w) {
			return true
		}
		g.addEdge(w, l)
	}
	return false
}
