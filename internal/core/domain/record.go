package domain

import "fmt"

// Category names one of the two fixed knowledge partitions. Every record
// lives in exactly one category's index and never moves after ingestion.
type Category string

const (
	// CategoryProductSales covers product descriptions, benefits and premiums.
	// It is the fail-open routing default.
	CategoryProductSales Category = "product_sales"
	// CategoryCustomerCorporate covers claims, payments, contacts and
	// corporate service questions.
	CategoryCustomerCorporate Category = "customer_corporate"
)

func Categories() []Category {
	return []Category{CategoryProductSales, CategoryCustomerCorporate}
}

func ParseCategory(raw string) (Category, error) {
	switch Category(raw) {
	case CategoryProductSales:
		return CategoryProductSales, nil
	case CategoryCustomerCorporate:
		return CategoryCustomerCorporate, nil
	default:
		return "", fmt.Errorf("%w: %q (expected %q or %q)",
			ErrUnknownCategory, raw, CategoryProductSales, CategoryCustomerCorporate)
	}
}

// RecordMetadata carries the ranking/display fields of a record. Fields are
// plain strings with "" meaning absent; ingestion fills missing columns with
// the empty string rather than dropping the record.
type RecordMetadata struct {
	CategoryTopic   string `json:"category_topic,omitempty"`
	ProductName     string `json:"product_name,omitempty"`
	InsuranceType   string `json:"insurance_type,omitempty"`
	TopicFocus      string `json:"topic_focus,omitempty"`
	CoverageKeyword string `json:"coverage_keyword,omitempty"`
	ActionType      string `json:"action_type,omitempty"`
	Entity          string `json:"entity,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Record is one retrievable unit of FAQ knowledge. Body is the embedded
// evidence text; QuestionHint is an optional question paraphrase used only
// for ranking. Metadata is never embedded.
type Record struct {
	ID           string         `json:"id"`
	Body         string         `json:"body"`
	QuestionHint string         `json:"question_hint,omitempty"`
	Category     Category       `json:"category"`
	Metadata     RecordMetadata `json:"metadata"`
}
