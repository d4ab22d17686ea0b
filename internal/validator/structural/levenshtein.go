package structural

// Distance is the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	return distance([]rune(a), []rune(b))
}

// Similarity returns 1 - distance/max(len), in [0,1]. Two empty strings are identical.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	return ratio(distance(ra, rb), len(ra), len(rb))
}

func ratio(d, la, lb int) float64 {
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(d)/float64(longest)
}

func distance[T comparable](a, b []T) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// lineSimilarity compares line sequences; used when a rune matrix would be too large.
func lineSimilarity(a, b []string) float64 {
	return ratio(distance(a, b), len(a), len(b))
}
