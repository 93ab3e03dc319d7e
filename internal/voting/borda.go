package voting

import "sort"

// BordaPoints scores each ballot positionally: on a ballot of length L the
// idea at zero-based position j earns L-j points. Every idea in ideas starts
// at zero; names on a ballot that are not in ideas are ignored.
func BordaPoints(ideas []string, ballots []Ballot) map[string]int {
	points := make(map[string]int, len(ideas))
	for _, idea := range ideas {
		points[idea] = 0
	}

	for _, ballot := range ballots {
		l := len(ballot)
		for j, idea := range ballot {
			if _, ok := points[idea]; !ok {
				continue
			}
			points[idea] += l - j
		}
	}
	return points
}

// RankByPoints assigns dense ranks by descending points. Equal points share
// a rank and the next distinct score takes the next integer.
func RankByPoints(points map[string]int) map[string]int {
	scores := make([]int, 0, len(points))
	seen := make(map[int]bool, len(points))
	for _, p := range points {
		if !seen[p] {
			seen[p] = true
			scores = append(scores, p)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))

	rankOf := make(map[int]int, len(scores))
	for i, s := range scores {
		rankOf[s] = i + 1
	}

	ranks := make(map[string]int, len(points))
	for idea, p := range points {
		ranks[idea] = rankOf[p]
	}
	return ranks
}
