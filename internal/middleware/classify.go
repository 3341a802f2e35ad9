package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/models"
)

// Categories assigned by Classify.
const (
	CategoryCode     = "code"
	CategoryAnalysis = "analysis"
	CategoryCreative = "creative"
	CategoryGeneral  = "general"
)

// Complexity levels assigned by Classify.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

var (
	codePattern     = regexp.MustCompile("(?i)```|\\b(func|class|def|struct|compile|refactor|stack ?trace|bug|unit tests?|regex|sql|function)\\b")
	analysisPattern = regexp.MustCompile(`(?i)\b(analy[sz]e|compare|evaluate|explain|why|trade-?offs?|review|assess)\b`)
	creativePattern = regexp.MustCompile(`(?i)\b(story|poem|haiku|lyrics|slogan|brainstorm|imagine)\b`)
	heavyPattern    = regexp.MustCompile(`(?i)\b(architecture|design|step[- ]by[- ]step|migrat(e|ion)|end[- ]to[- ]end|in depth|thorough(ly)?)\b`)
)

const (
	mediumPromptBytes = 400
	highPromptBytes   = 4000
)

// Router chooses the model suggested for a classification.
type Router struct {
	// Tier maps a classification to a cost tier. Nil uses TierForComplexity.
	Tier func(interceptor.Classification) models.CostTier

	// FillModel sets Options.Model to the suggestion when the caller left
	// it empty.
	FillModel bool
}

// TierForComplexity routes low complexity to the cheap tier and high
// complexity to the expensive one.
func TierForComplexity(c interceptor.Classification) models.CostTier {
	switch c.Complexity {
	case ComplexityHigh:
		return models.CostTierHigh
	case ComplexityMedium:
		return models.CostTierMedium
	default:
		return models.CostTierLow
	}
}

// Classify tags the request with a category and complexity and suggests a
// model from the catalog.
func Classify(router Router) interceptor.Interceptor {
	tier := router.Tier
	if tier == nil {
		tier = TierForComplexity
	}

	return interceptor.Interceptor{
		Name: "classify",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			c := ClassifyPrompt(req.Prompt)

			if m, ok := models.Preferred(tier(c)); ok {
				c.SuggestedModel = m.ID
			}

			ictx.Classification = c

			if router.FillModel && c.SuggestedModel != "" && req.Options != nil && req.Options.Model == "" {
				req = req.Clone()
				req.Options.Model = c.SuggestedModel
			}

			return next(ctx, req, ictx)
		},
	}
}

// ClassifyPrompt applies the keyword and size heuristics to prompt.
// SuggestedModel is left empty.
func ClassifyPrompt(prompt string) interceptor.Classification {
	category := CategoryGeneral

	switch {
	case codePattern.MatchString(prompt):
		category = CategoryCode
	case analysisPattern.MatchString(prompt):
		category = CategoryAnalysis
	case creativePattern.MatchString(prompt):
		category = CategoryCreative
	}

	size := len(strings.TrimSpace(prompt))
	complexity := ComplexityLow

	switch {
	case size >= highPromptBytes || heavyPattern.MatchString(prompt):
		complexity = ComplexityHigh
	case size >= mediumPromptBytes || category == CategoryCode || category == CategoryAnalysis:
		complexity = ComplexityMedium
	}

	return interceptor.Classification{Category: category, Complexity: complexity}
}
