package resolve

// pairKey identifies an unordered pair of question positions. Positions
// rather than ids, so repeated ids in one document stay distinct.
type pairKey struct {
	lo, hi int
}

func newPairKey(a, b int) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

type pairResult struct {
	questionSim float64
	answerSim   float64
}

// pairCache memoizes cross-document comparisons for one Resolve call.
// It is not safe for concurrent use.
type pairCache struct {
	results map[pairKey]pairResult
	hits    int
}

func newPairCache() *pairCache {
	return &pairCache{results: make(map[pairKey]pairResult)}
}

func (c *pairCache) get(a, b int) (pairResult, bool) {
	r, ok := c.results[newPairKey(a, b)]
	if ok {
		c.hits++
	}
	return r, ok
}

func (c *pairCache) put(a, b int, r pairResult) {
	c.results[newPairKey(a, b)] = r
}
