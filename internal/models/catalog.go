// Package models is the catalog of Claude models the pipeline can route to.
//
// The classification interceptor picks a suggested model by cost tier, and
// token counting uses the context window to report how much of the budget a
// prompt consumes.
package models

import (
	"slices"
	"strings"
)

// CostTier is a relative price class.
type CostTier string

const (
	CostTierHigh   CostTier = "high"
	CostTierMedium CostTier = "medium"
	CostTierLow    CostTier = "low"
)

// DefaultContextWindow is assumed for model ids the catalog does not know.
const DefaultContextWindow = 200_000

// Model describes one catalog entry.
type Model struct {
	ID              string
	Name            string
	Alias           string
	CostTier        CostTier
	ContextWindow   int
	MaxOutputTokens int
}

// catalog is ordered newest first within each tier.
var catalog = []Model{
	{ID: "claude-opus-4-6", Name: "Claude Opus 4.6", Alias: "opus", CostTier: CostTierHigh, ContextWindow: 200_000, MaxOutputTokens: 128_000},
	{ID: "claude-sonnet-4-6", Name: "Claude Sonnet 4.6", Alias: "sonnet", CostTier: CostTierMedium, ContextWindow: 200_000, MaxOutputTokens: 64_000},
	{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", Alias: "haiku", CostTier: CostTierLow, ContextWindow: 200_000, MaxOutputTokens: 64_000},
	{ID: "claude-opus-4-5", Name: "Claude Opus 4.5", CostTier: CostTierHigh, ContextWindow: 200_000, MaxOutputTokens: 64_000},
	{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", CostTier: CostTierMedium, ContextWindow: 200_000, MaxOutputTokens: 64_000},
	{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", CostTier: CostTierHigh, ContextWindow: 200_000, MaxOutputTokens: 32_000},
	{ID: "claude-sonnet-4-0", Name: "Claude Sonnet 4", CostTier: CostTierMedium, ContextWindow: 200_000, MaxOutputTokens: 64_000},
}

// All returns a copy of the catalog.
func All() []Model {
	return slices.Clone(catalog)
}

// Lookup resolves an id, alias, or dated id ("claude-opus-4-6-20260205").
func Lookup(id string) (Model, bool) {
	if id == "" {
		return Model{}, false
	}

	if i := slices.IndexFunc(catalog, func(m Model) bool { return m.ID == id || m.Alias == id }); i >= 0 {
		return catalog[i], true
	}

	for _, m := range catalog {
		if strings.HasPrefix(id, m.ID+"-") {
			return m, true
		}
	}

	return Model{}, false
}

// ByCostTier returns the models of tier, newest first.
func ByCostTier(tier CostTier) []Model {
	var out []Model

	for _, m := range catalog {
		if m.CostTier == tier {
			out = append(out, m)
		}
	}

	return out
}

// Preferred returns the newest model of tier. ok is false for an unknown tier.
func Preferred(tier CostTier) (Model, bool) {
	tiered := ByCostTier(tier)
	if len(tiered) == 0 {
		return Model{}, false
	}

	return tiered[0], true
}

// ContextWindow returns the context window of id, or DefaultContextWindow.
func ContextWindow(id string) int {
	if m, ok := Lookup(id); ok {
		return m.ContextWindow
	}

	return DefaultContextWindow
}
