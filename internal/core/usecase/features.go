package usecase

import (
	"strings"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

// Known vocabularies for lexical query hints. Matching is containment based,
// so "smarttravel" also catches "smarttravel international".
var (
	knownProducts = []string{
		"smarthome",
		"smartactive",
		"smarttravel",
		"smartmedicare",
		"smartdrive",
		"smartcare",
	}

	knownInsuranceTypes = []string{
		"kesehatan",
		"jiwa",
		"perjalanan",
		"kendaraan",
		"properti",
		"kecelakaan",
	}

	knownCoverageTerms = []string{
		"rawat inap",
		"rawat jalan",
		"premi",
		"klaim",
		"polis",
		"santunan",
		"manfaat",
		"pertanggungan",
	}
)

// ExtractFeatures derives lexical hints from a raw query. Pure and
// case-insensitive; it never fails. Vocabulary terms are matched verbatim
// and with internal whitespace stripped, so a two-word product written as
// one word ("smart home" vs "smarthome") still matches. No stemming, no
// synonym expansion.
func ExtractFeatures(query string) domain.QueryFeatures {
	lowered := strings.ToLower(query)
	squashed := stripSpaces(lowered)

	features := domain.QueryFeatures{
		Products:       matchVocabulary(lowered, squashed, knownProducts),
		InsuranceTypes: matchVocabulary(lowered, squashed, knownInsuranceTypes),
		CoverageTerms:  matchVocabulary(lowered, squashed, knownCoverageTerms),
		Keywords:       make(map[string]struct{}),
	}
	for _, token := range strings.Fields(lowered) {
		features.Keywords[token] = struct{}{}
	}
	return features
}

func matchVocabulary(lowered, squashed string, terms []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, term := range terms {
		if strings.Contains(lowered, term) || strings.Contains(squashed, stripSpaces(term)) {
			out[term] = struct{}{}
		}
	}
	return out
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
