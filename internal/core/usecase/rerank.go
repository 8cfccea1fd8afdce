package usecase

import (
	"sort"
	"strings"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

// Boost weights. All boosts are negative: a lexical signal can only move a
// candidate up, never push it below its semantic rank when the signal is
// absent from every candidate.
const (
	boostProductName   = -0.8
	boostInsuranceType = -0.6
	boostCategoryTopic = -0.4
	boostTopicFocus    = -0.3
	boostCoverageTerm  = -0.3
	boostQuestionHigh  = -0.5
	boostQuestionMid   = -0.35
	boostQuestionLow   = -0.15
	boostBodyProduct   = -0.2
)

// boostRule is one independent scoring signal. Rules are evaluated
// unconditionally and their scores summed; none are mutually exclusive.
type boostRule struct {
	name  string
	score func(c domain.Candidate, f domain.QueryFeatures, rawQuery string) float64
}

var boostRules = []boostRule{
	{name: "product_name", score: productNameScore},
	{name: "insurance_type", score: insuranceTypeScore},
	{name: "category_topic", score: categoryTopicScore},
	{name: "topic_focus", score: topicFocusScore},
	{name: "coverage_keyword", score: coverageTermScore},
	{name: "question_similarity", score: questionSimilarityScore},
	{name: "body_product", score: bodyProductScore},
}

// Rerank applies every boost rule to every candidate, sums the adjustments
// into the boosted distance and returns the best finalK entries. The sort is
// deliberately stable: ties keep the original retrieval order.
func Rerank(candidates []domain.Candidate, features domain.QueryFeatures, rawQuery string, finalK int) []domain.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		out[i].Boost = 0
		out[i].BoostReasons = nil
		for _, rule := range boostRules {
			score := rule.score(out[i], features, rawQuery)
			if score == 0 {
				continue
			}
			out[i].Boost += score
			out[i].BoostReasons = append(out[i].BoostReasons, rule.name)
		}
		out[i].BoostedDistance = out[i].Distance + out[i].Boost
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BoostedDistance < out[j].BoostedDistance
	})

	if finalK > 0 && finalK < len(out) {
		out = out[:finalK]
	}
	return out
}

// productNameScore fires at most once regardless of how many extracted
// products match the metadata.
func productNameScore(c domain.Candidate, f domain.QueryFeatures, _ string) float64 {
	name := strings.ToLower(c.Record.Metadata.ProductName)
	if name == "" {
		return 0
	}
	squashed := stripSpaces(name)
	for product := range f.Products {
		if strings.Contains(name, product) || strings.Contains(squashed, stripSpaces(product)) {
			return boostProductName
		}
	}
	return 0
}

func insuranceTypeScore(c domain.Candidate, f domain.QueryFeatures, _ string) float64 {
	insType := strings.ToLower(c.Record.Metadata.InsuranceType)
	if insType == "" {
		return 0
	}
	for term := range f.InsuranceTypes {
		if strings.Contains(insType, term) {
			return boostInsuranceType
		}
	}
	return 0
}

// categoryTopicScore intersects the underscore-separated topic words with
// the query keywords.
func categoryTopicScore(c domain.Candidate, f domain.QueryFeatures, _ string) float64 {
	topic := strings.ToLower(c.Record.Metadata.CategoryTopic)
	if topic == "" {
		return 0
	}
	for _, word := range strings.Split(topic, "_") {
		if word == "" {
			continue
		}
		if _, ok := f.Keywords[word]; ok {
			return boostCategoryTopic
		}
	}
	return 0
}

func topicFocusScore(c domain.Candidate, f domain.QueryFeatures, _ string) float64 {
	focus := strings.ToLower(c.Record.Metadata.TopicFocus)
	if focus == "" {
		return 0
	}
	for _, word := range strings.Fields(focus) {
		if _, ok := f.Keywords[word]; ok {
			return boostTopicFocus
		}
	}
	return 0
}

func coverageTermScore(c domain.Candidate, f domain.QueryFeatures, _ string) float64 {
	coverage := strings.ToLower(c.Record.Metadata.CoverageKeyword)
	if coverage == "" {
		return 0
	}
	for term := range f.CoverageTerms {
		if strings.Contains(coverage, term) {
			return boostCoverageTerm
		}
	}
	return 0
}

// questionSimilarityScore grades the Jaccard overlap between the raw query
// and the record's question paraphrase. Exactly one tier applies.
func questionSimilarityScore(c domain.Candidate, _ domain.QueryFeatures, rawQuery string) float64 {
	if c.Record.QuestionHint == "" {
		return 0
	}
	similarity := jaccard(tokenSet(rawQuery), tokenSet(c.Record.QuestionHint))
	switch {
	case similarity > 0.7:
		return boostQuestionHigh
	case similarity > 0.5:
		return boostQuestionMid
	case similarity > 0.3:
		return boostQuestionLow
	default:
		return 0
	}
}

// bodyProductScore is independent from productNameScore: it rewards evidence
// text that mentions the product even when the metadata does not.
func bodyProductScore(c domain.Candidate, f domain.QueryFeatures, _ string) float64 {
	body := strings.ToLower(c.Record.Body)
	if body == "" {
		return 0
	}
	for product := range f.Products {
		if strings.Contains(body, product) {
			return boostBodyProduct
		}
	}
	return 0
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(s)) {
		out[token] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
