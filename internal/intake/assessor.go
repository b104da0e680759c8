package intake

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/casefront/engage/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)
)

// GoalAssessor inspects the conversation and the accumulated identity to
// decide updated goal states. It is the sole authority on goal completion:
// model-suggested completions are validated against the same rules and
// discarded when the rules disagree.
//
// The assessor is stateless and safe for concurrent use.
type GoalAssessor struct{}

func NewGoalAssessor() *GoalAssessor {
	return &GoalAssessor{}
}

// Assess walks the session's incomplete goals in list order and returns
// every update the current evidence supports. All eligible goals are
// updated in the same pass; list order makes the result deterministic.
func (a *GoalAssessor) Assess(s *domain.IntakeSession) []domain.GoalUpdate {
	var updates []domain.GoalUpdate

	for i := range s.Goals {
		g := &s.Goals[i]
		if g.State == domain.GoalStateCompleted {
			continue
		}

		state, evidence := a.evaluate(s, g)
		if state == g.State {
			continue
		}

		updates = append(updates, domain.GoalUpdate{
			GoalID:   g.ID,
			NewState: state,
			Evidence: evidence,
		})
	}

	return updates
}

// ValidateSuggestions filters model-proposed goal updates down to the ones
// the assessor's own rules agree with. Suggestions for unknown goals or
// states outside the enum, regressions of any kind, completions without
// evidence, and completions the rules cannot independently confirm are
// all dropped.
func (a *GoalAssessor) ValidateSuggestions(s *domain.IntakeSession, suggestions []domain.GoalUpdate) []domain.GoalUpdate {
	var accepted []domain.GoalUpdate

	for _, sug := range suggestions {
		g := s.GoalByID(sug.GoalID)
		if g == nil || g.State == domain.GoalStateCompleted {
			continue
		}
		if !g.State.ValidTransition(sug.NewState) {
			continue
		}
		if sug.NewState == domain.GoalStateCompleted {
			if sug.Evidence == "" {
				continue
			}
			state, _ := a.evaluate(s, g)
			if state != domain.GoalStateCompleted {
				continue
			}
		}
		accepted = append(accepted, sug)
	}

	return accepted
}

// evaluate applies the completion rule for one goal and returns the state
// the evidence supports plus the evidence string.
func (a *GoalAssessor) evaluate(s *domain.IntakeSession, g *domain.Goal) (domain.GoalState, string) {
	switch g.Category {
	case domain.GoalCategoryIdentification:
		return evaluateIdentification(&s.Identity)
	case domain.GoalCategoryLegalContext:
		return evaluateLegalContext(s)
	case domain.GoalCategoryConflictReadiness:
		return evaluateConflictReadiness(&s.Identity)
	default:
		return evaluateKeywordGoal(s, g)
	}
}

// evaluateIdentification requires an explicit contact value: a critical
// goal is never completed on inferred evidence alone, so the evidence is
// always an email- or phone-shaped string, never just a name.
func evaluateIdentification(identity *domain.ClientIdentity) (domain.GoalState, string) {
	contact := firstExplicitContact(identity)

	if identity.Name != "" && contact != "" {
		return domain.GoalStateCompleted, contact
	}
	if identity.Name != "" || contact != "" {
		return domain.GoalStatePartial, ""
	}
	return domain.GoalStatePending, ""
}

// matterKeywords mark a user message as a description of the legal matter
// rather than contact details or small talk.
var matterKeywords = []string{
	"accident", "crash", "collision", "injured", "injury", "hurt",
	"divorce", "custody", "separated", "fired", "terminated", "laid off",
	"harassment", "discrimination", "arrested", "charged", "sued",
	"contract", "dispute", "evicted", "landlord", "malpractice",
}

func evaluateLegalContext(s *domain.IntakeSession) (domain.GoalState, string) {
	const minNarrative = 20

	if desc := strings.TrimSpace(s.Identity.CaseDescription); len(desc) >= minNarrative {
		return domain.GoalStateCompleted, truncateEvidence(desc)
	}

	// Identity carries no description yet; look for a user message that
	// reads as a matter narrative, not just contact details.
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role != domain.MessageRoleUser {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if len(content) < minNarrative {
			continue
		}
		lower := strings.ToLower(content)
		for _, kw := range matterKeywords {
			if strings.Contains(lower, kw) {
				return domain.GoalStateCompleted, truncateEvidence(content)
			}
		}
	}

	if strings.TrimSpace(s.Identity.CaseDescription) != "" {
		return domain.GoalStatePartial, ""
	}
	return domain.GoalStatePending, ""
}

func evaluateConflictReadiness(identity *domain.ClientIdentity) (domain.GoalState, string) {
	switch {
	case identity.Name != "" && identity.Organization != "":
		return domain.GoalStateCompleted, identity.Name + "; " + identity.Organization
	case identity.Name != "":
		return domain.GoalStateCompleted, identity.Name
	case identity.Organization != "":
		return domain.GoalStatePartial, ""
	default:
		return domain.GoalStatePending, ""
	}
}

var categoryKeywords = map[domain.GoalCategory][]string{
	domain.GoalCategoryIncidentDetails: {"accident", "crash", "collision", "injured", "injury", "fell", "slip"},
	domain.GoalCategoryMedical:         {"hospital", "doctor", "treatment", "surgery", "therapy", "er ", "emergency room"},
	domain.GoalCategoryEmployment:      {"employer", "fired", "terminated", "laid off", "supervisor", "wages", "overtime"},
	domain.GoalCategoryOpposingParty:   {"ex-", "spouse", "husband", "wife", "partner", "against"},
}

// evaluateKeywordGoal handles supplemental/optional categories with a
// keyword scan over the user's side of the conversation. The evidence is
// the sentence fragment around the first keyword hit.
func evaluateKeywordGoal(s *domain.IntakeSession, g *domain.Goal) (domain.GoalState, string) {
	keywords, ok := categoryKeywords[g.Category]
	if !ok {
		return g.State, g.Evidence
	}

	for _, m := range s.Messages {
		if m.Role != domain.MessageRoleUser {
			continue
		}
		lower := foldASCII(m.Content)
		for _, kw := range keywords {
			if idx := strings.Index(lower, kw); idx >= 0 {
				return domain.GoalStateCompleted, truncateEvidence(m.Content[idx:])
			}
		}
	}

	return g.State, g.Evidence
}

func firstExplicitContact(identity *domain.ClientIdentity) string {
	for _, e := range identity.Emails {
		if emailPattern.MatchString(e) {
			return e
		}
	}
	for _, p := range identity.Phones {
		if phonePattern.MatchString(p) {
			return p
		}
	}
	return ""
}

// foldASCII lowercases ASCII letters only. Unlike strings.ToLower it never
// changes byte length, so an index into the folded string is valid in the
// original. All keywords are ASCII.
func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func truncateEvidence(v string) string {
	const maxEvidence = 200
	if len(v) <= maxEvidence {
		return v
	}
	cut := maxEvidence
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut]
}
