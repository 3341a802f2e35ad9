package claudepipe

import "github.com/wagiedev/claude-pipeline-go/internal/models"

// Model describes a catalog entry.
type Model = models.Model

// ModelCostTier is a relative price class.
type ModelCostTier = models.CostTier

const (
	ModelCostTierHigh   = models.CostTierHigh
	ModelCostTierMedium = models.CostTierMedium
	ModelCostTierLow    = models.CostTierLow
)

// Models returns a copy of the model catalog.
func Models() []Model {
	return models.All()
}

// LookupModel resolves an id, alias, or dated id.
func LookupModel(id string) (Model, bool) {
	return models.Lookup(id)
}

// ModelsByCostTier returns the models of tier, newest first.
func ModelsByCostTier(tier ModelCostTier) []Model {
	return models.ByCostTier(tier)
}
