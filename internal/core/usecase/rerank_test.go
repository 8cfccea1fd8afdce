package usecase

import (
	"fmt"
	"math"
	"testing"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

func candidateWithProduct(id, product string, distance float64) domain.Candidate {
	return domain.Candidate{
		Record: domain.Record{
			ID:       id,
			Body:     "deskripsi produk",
			Category: domain.CategoryProductSales,
			Metadata: domain.RecordMetadata{ProductName: product},
		},
		Distance: distance,
	}
}

func TestRerankProductMatchReceivesFullBoost(t *testing.T) {
	features := ExtractFeatures("coba jelaskan mengenai produk SmartHome")
	candidates := []domain.Candidate{
		candidateWithProduct("c-1", "SmartActive", 0.30),
		candidateWithProduct("c-2", "SmartHome", 0.90),
	}

	out := Rerank(candidates, features, "coba jelaskan mengenai produk SmartHome", 2)

	if out[0].Record.ID != "c-2" {
		t.Fatalf("expected SmartHome candidate first, got %s", out[0].Record.ID)
	}
	if out[0].Boost > boostProductName {
		t.Fatalf("expected boost <= %.2f, got %.4f", boostProductName, out[0].Boost)
	}
	if got := out[0].BoostedDistance; math.Abs(got-(0.90+boostProductName)) > 1e-9 {
		t.Fatalf("boosted distance = %.4f, want %.4f", got, 0.90+boostProductName)
	}
}

func TestRerankProductMatchDoesNotStack(t *testing.T) {
	// Two extracted products matching the same metadata still count once.
	features := ExtractFeatures("bandingkan SmartHome dan SmartCare")
	candidate := domain.Candidate{
		Record: domain.Record{
			ID:       "c-1",
			Category: domain.CategoryProductSales,
			Metadata: domain.RecordMetadata{ProductName: "SmartHome SmartCare Bundle"},
		},
		Distance: 1.0,
	}

	out := Rerank([]domain.Candidate{candidate}, features, "bandingkan SmartHome dan SmartCare", 1)

	if out[0].Boost != boostProductName {
		t.Fatalf("expected single product boost %.2f, got %.4f", boostProductName, out[0].Boost)
	}
}

func TestRerankRulesAccumulate(t *testing.T) {
	query := "bagaimana klaim asuransi kesehatan smarthome?"
	features := ExtractFeatures(query)
	candidate := domain.Candidate{
		Record: domain.Record{
			ID:           "c-1",
			Body:         "panduan klaim smarthome untuk pemegang polis",
			QuestionHint: "bagaimana klaim asuransi kesehatan smarthome?",
			Category:     domain.CategoryCustomerCorporate,
			Metadata: domain.RecordMetadata{
				ProductName:     "SmartHome",
				InsuranceType:   "kesehatan",
				CategoryTopic:   "prosedur_klaim",
				TopicFocus:      "klaim polis",
				CoverageKeyword: "klaim rawat inap",
			},
		},
		Distance: 2.0,
	}

	out := Rerank([]domain.Candidate{candidate}, features, query, 1)

	// Identical question hint puts Jaccard similarity at 1.0, so every rule
	// fires at its strongest tier.
	want := boostProductName + boostInsuranceType + boostCategoryTopic +
		boostTopicFocus + boostCoverageTerm + boostQuestionHigh + boostBodyProduct
	if math.Abs(out[0].Boost-want) > 1e-9 {
		t.Fatalf("accumulated boost = %.4f, want %.4f (reasons %v)", out[0].Boost, want, out[0].BoostReasons)
	}
	if len(out[0].BoostReasons) != len(boostRules) {
		t.Fatalf("expected all %d rules to fire, got %v", len(boostRules), out[0].BoostReasons)
	}
}

func TestRerankQuestionSimilarityTiers(t *testing.T) {
	cases := []struct {
		hint string
		want float64
	}{
		{"apa manfaat smarthome", boostQuestionHigh},                  // jaccard 1.0
		{"apa manfaat smarthome untuk keluarga", boostQuestionMid},    // 3/5 = 0.6
		{"apa saja manfaat utama produk smarthome", boostQuestionLow}, // 3/6 = 0.5
		{"cara menghubungi customer care", 0},
	}

	for _, tc := range cases {
		candidate := domain.Candidate{
			Record:   domain.Record{ID: "c-1", QuestionHint: tc.hint},
			Distance: 1.0,
		}
		got := questionSimilarityScore(candidate, domain.QueryFeatures{}, "apa manfaat smarthome")
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("hint %q: score = %.4f, want %.4f", tc.hint, got, tc.want)
		}
	}
}

func TestRerankWithoutHintGetsNoSimilarityBoost(t *testing.T) {
	candidate := domain.Candidate{Record: domain.Record{ID: "c-1"}, Distance: 1.0}
	if got := questionSimilarityScore(candidate, domain.QueryFeatures{}, "apa itu smarthome"); got != 0 {
		t.Fatalf("expected zero score without question hint, got %.4f", got)
	}
}

func TestRerankStableOrderOnTies(t *testing.T) {
	features := ExtractFeatures("pertanyaan umum")
	candidates := []domain.Candidate{
		{Record: domain.Record{ID: "c-1"}, Distance: 0.5},
		{Record: domain.Record{ID: "c-2"}, Distance: 0.5},
		{Record: domain.Record{ID: "c-3"}, Distance: 0.5},
	}

	out := Rerank(candidates, features, "pertanyaan umum", 3)

	for i, want := range []string{"c-1", "c-2", "c-3"} {
		if out[i].Record.ID != want {
			t.Fatalf("tie order broken at %d: got %s, want %s", i, out[i].Record.ID, want)
		}
	}
}

func TestRerankNeverDemotesOnlyMatchingCandidate(t *testing.T) {
	// Monotonicity: when exactly one candidate matches a product feature and
	// no other rule fires, its rank can only improve.
	features := ExtractFeatures("produk smartdrive")
	candidates := []domain.Candidate{
		{Record: domain.Record{ID: "c-1"}, Distance: 0.1},
		{Record: domain.Record{ID: "c-2"}, Distance: 0.2},
		{Record: domain.Record{ID: "c-3", Metadata: domain.RecordMetadata{ProductName: "SmartDrive"}}, Distance: 0.3},
	}

	out := Rerank(candidates, features, "produk smartdrive", 3)

	rankAfter := -1
	for i, c := range out {
		if c.Record.ID == "c-3" {
			rankAfter = i
		}
	}
	if rankAfter > 2 {
		t.Fatalf("matching candidate demoted: rank %d", rankAfter)
	}
	if rankAfter != 0 {
		t.Fatalf("expected boosted candidate first (0.3-0.8 < 0.1), got rank %d", rankAfter)
	}
}

func TestRerankSmartHomeScenario(t *testing.T) {
	// 20 retrieved candidates, 4 of them SmartHome records sitting at the
	// bottom of the semantic ranking; after re-ranking at least 3 of the top
	// 5 must carry product_name == SmartHome.
	query := "coba jelaskan mengenai produk SmartHome"
	features := ExtractFeatures(query)

	candidates := make([]domain.Candidate, 0, 20)
	for i := 0; i < 16; i++ {
		candidates = append(candidates, candidateWithProduct(
			fmt.Sprintf("other-%d", i), "SmartActive", 0.40+float64(i)*0.01))
	}
	for i := 0; i < 4; i++ {
		candidates = append(candidates, candidateWithProduct(
			fmt.Sprintf("home-%d", i), "SmartHome", 0.60+float64(i)*0.01))
	}

	out := Rerank(candidates, features, query, 5)

	if len(out) != 5 {
		t.Fatalf("expected 5 results, got %d", len(out))
	}
	smarthome := 0
	for _, c := range out {
		if c.Record.Metadata.ProductName == "SmartHome" {
			smarthome++
			if c.Boost > boostProductName {
				t.Fatalf("SmartHome candidate boost = %.4f, want <= %.2f", c.Boost, boostProductName)
			}
		}
	}
	if smarthome < 3 {
		t.Fatalf("expected at least 3 SmartHome results in top 5, got %d", smarthome)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	out := Rerank(nil, domain.QueryFeatures{}, "q", 5)
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	features := ExtractFeatures("produk smarthome")
	in := []domain.Candidate{candidateWithProduct("c-1", "SmartHome", 1.0)}

	_ = Rerank(in, features, "produk smarthome", 1)

	if in[0].Boost != 0 || in[0].BoostedDistance != 0 {
		t.Fatalf("input slice mutated: boost=%.4f boosted=%.4f", in[0].Boost, in[0].BoostedDistance)
	}
}
