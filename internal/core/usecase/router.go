package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
	"github.com/karisazi/faq-chatbot/internal/core/ports"
)

// Router assigns a query to one of the two categories through a single LLM
// classification call. Misrouting only degrades answer quality, so every
// failure path falls open to the product category instead of blocking the
// pipeline.
type Router struct {
	classifier ports.IntentClassifier
	logger     *slog.Logger
}

func NewRouter(classifier ports.IntentClassifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{classifier: classifier, logger: logger}
}

func (r *Router) Route(ctx context.Context, query string) domain.Category {
	label, err := r.classifier.ClassifyIntent(ctx, query)
	if err != nil {
		r.logger.Warn("intent_classification_failed",
			"error", err,
			"fallback", string(domain.CategoryProductSales),
		)
		return domain.CategoryProductSales
	}
	return parseCategoryLabel(label)
}

// parseCategoryLabel is deliberately forgiving: the model output is
// upper-cased and matched by substring, product label first. Anything that
// names neither category resolves to the product default.
func parseCategoryLabel(raw string) domain.Category {
	label := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(label, strings.ToUpper(string(domain.CategoryProductSales))):
		return domain.CategoryProductSales
	case strings.Contains(label, strings.ToUpper(string(domain.CategoryCustomerCorporate))):
		return domain.CategoryCustomerCorporate
	default:
		return domain.CategoryProductSales
	}
}
