package domain

// SearchFilter is an equality constraint on record metadata, applied by the
// vector index alongside similarity search. An empty map means no filter.
type SearchFilter struct {
	Metadata map[string]string
}

func (f SearchFilter) Empty() bool {
	return len(f.Metadata) == 0
}

// Candidate is one similarity-search hit flowing through re-ranking.
// Distance is the raw index score (smaller is closer); Boost is the summed
// rule adjustment, never positive for the current rule set.
type Candidate struct {
	Record          Record   `json:"record"`
	Distance        float64  `json:"distance"`
	Boost           float64  `json:"boost"`
	BoostedDistance float64  `json:"boosted_distance"`
	BoostReasons    []string `json:"boost_reasons,omitempty"`
}

// QueryFeatures are the lexical hints extracted from a raw query. Sets are
// keyed by the matched vocabulary term in lowercase. Request-scoped, never
// persisted.
type QueryFeatures struct {
	Products       map[string]struct{}
	InsuranceTypes map[string]struct{}
	CoverageTerms  map[string]struct{}
	Keywords       map[string]struct{}
}

// ChatTurn is one entry of the caller-supplied conversation history. The
// service reads a bounded trailing window and never stores turns.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is the final chat response with the evidence that produced it.
// FallbackReason is empty on a normally synthesized answer; otherwise it
// names the degraded path ("no_context" or "synthesis_error").
type Answer struct {
	Text           string      `json:"text"`
	Category       Category    `json:"category"`
	Sources        []Candidate `json:"sources,omitempty"`
	Cached         bool        `json:"cached"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
}
