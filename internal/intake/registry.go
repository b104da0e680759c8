package intake

import "github.com/casefront/engage/internal/domain"

// GoalRegistry is the read-only lookup of default goal sets per matter
// category. It is shared across all sessions without locking.
type GoalRegistry struct {
	defaults map[domain.MatterCategory][]domain.GoalDefinition
	generic  []domain.GoalDefinition
}

// NewGoalRegistry builds the built-in goal sets. Unknown categories fall
// back to the generic set.
func NewGoalRegistry() *GoalRegistry {
	identification := domain.GoalDefinition{
		ID:         "identification",
		Priority:   domain.GoalPriorityCritical,
		Category:   domain.GoalCategoryIdentification,
		PromptHint: "Collect the client's full name and at least one contact channel (email or phone).",
	}
	legalContext := domain.GoalDefinition{
		ID:         "legal_context",
		Priority:   domain.GoalPriorityRequired,
		Category:   domain.GoalCategoryLegalContext,
		PromptHint: "Understand what happened: a free-text description of the legal matter.",
	}
	conflictReadiness := domain.GoalDefinition{
		ID:         "conflict_readiness",
		Priority:   domain.GoalPriorityRequired,
		Category:   domain.GoalCategoryConflictReadiness,
		PromptHint: "Learn the names of other parties involved so a conflict check can run.",
	}

	generic := []domain.GoalDefinition{identification, legalContext, conflictReadiness}

	defaults := map[domain.MatterCategory][]domain.GoalDefinition{
		domain.MatterGeneral: generic,
		domain.MatterPersonalInjury: {
			identification,
			legalContext,
			conflictReadiness,
			{
				ID:         "incident_details",
				Priority:   domain.GoalPriorityOptional,
				Category:   domain.GoalCategoryIncidentDetails,
				PromptHint: "When and where the incident happened, and any injuries sustained.",
			},
			{
				ID:         "medical_treatment",
				Priority:   domain.GoalPriorityOptional,
				Category:   domain.GoalCategoryMedical,
				PromptHint: "Whether the client has received medical treatment.",
			},
		},
		domain.MatterFamilyLaw: {
			identification,
			legalContext,
			conflictReadiness,
			{
				ID:         "opposing_party",
				Priority:   domain.GoalPriorityOptional,
				Category:   domain.GoalCategoryOpposingParty,
				PromptHint: "The name of the other party in the family matter.",
			},
		},
		domain.MatterEmployment: {
			identification,
			legalContext,
			conflictReadiness,
			{
				ID:         "employment_details",
				Priority:   domain.GoalPriorityOptional,
				Category:   domain.GoalCategoryEmployment,
				PromptHint: "Employer name, role, and employment dates.",
			},
		},
	}

	return &GoalRegistry{defaults: defaults, generic: generic}
}

// GoalsFor returns the default goal definitions for a category.
// Deterministic; unknown categories get the generic set.
func (r *GoalRegistry) GoalsFor(category domain.MatterCategory) []domain.GoalDefinition {
	defs, ok := r.defaults[category]
	if !ok {
		defs = r.generic
	}

	out := make([]domain.GoalDefinition, len(defs))
	copy(out, defs)
	return out
}

// MergeDefinitions appends supplemental definitions onto base, dropping
// duplicates by goal ID. Base order is preserved; supplements keep their
// relative order after the base.
func MergeDefinitions(base, supplemental []domain.GoalDefinition) []domain.GoalDefinition {
	seen := make(map[string]struct{}, len(base))
	out := make([]domain.GoalDefinition, 0, len(base)+len(supplemental))

	for _, d := range base {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	for _, d := range supplemental {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}

	return out
}
