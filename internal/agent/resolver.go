// File: internal/agent/resolver.go
package agent

import (
	"strings"
)

// Keyword sets scanned by the resolver. Matching is plain substring search on
// lowercased text, so "ai" also matches inside longer words.
var (
	applyPhrases     = []string{"apply for", "want to apply", "application"}
	jobKeywords      = []string{"ai", "llm", "intern", "developer", "designer", "marketing"}
	careerWords      = []string{"career", "job", "position", "hiring", "opening"}
	contactWords     = []string{"contact", "reach out", "get in touch"}
	serviceWords     = []string{"service", "what we do", "offerings"}
	portfolioWords   = []string{"portfolio", "work", "projects"}
	navigationVerbs  = []string{"navigate to ", "go to ", "visit "}
	pageMentionAfter = " page"
)

// resolveInput is the lowercased view every rule reads.
type resolveInput struct {
	reply     string
	utterance string
	pages     []string
}

// rule is one step of the resolver pipeline. build returns the actions the
// rule contributes; when suppressIf is set, the rule is skipped if an action
// of that type has already been emitted.
type rule struct {
	name       string
	build      func(in resolveInput) []Action
	suppressIf ActionType
}

// rules run in this order, and that order is the execution order of the
// resulting actions. Only the career fallback is guarded; the contact,
// services and portfolio fallbacks may repeat a Navigate already emitted.
var rules = []rule{
	{name: "apply_intent", build: applyIntent},
	{name: "explicit_navigation", build: explicitNavigation},
	{name: "career_fallback", build: topical(careerWords, "career"), suppressIf: ActionNavigate},
	{name: "contact_fallback", build: topical(contactWords, "contact")},
	{name: "services_fallback", build: topical(serviceWords, "services")},
	{name: "portfolio_fallback", build: topical(portfolioWords, "portfolio")},
}

// Resolve turns the assistant's reply and the user's utterance into the
// ordered list of actions to execute. It is a pure function.
func Resolve(reply, utterance string, knownPages []string) []Action {
	actions, _ := ResolveExplained(reply, utterance, knownPages)
	return actions
}

// ResolveExplained is Resolve plus, for each action, the name of the rule
// that produced it.
func ResolveExplained(reply, utterance string, knownPages []string) ([]Action, []string) {
	in := resolveInput{
		reply:     strings.ToLower(reply),
		utterance: strings.ToLower(utterance),
		pages:     knownPages,
	}

	actions := []Action{}
	var origins []string
	for _, r := range rules {
		if r.suppressIf != "" && containsType(actions, r.suppressIf) {
			continue
		}
		for _, a := range r.build(in) {
			actions = append(actions, a)
			origins = append(origins, r.name)
		}
	}
	return actions, origins
}

func applyIntent(in resolveInput) []Action {
	if !containsAny(in.utterance, applyPhrases) {
		return nil
	}
	for _, kw := range jobKeywords {
		if strings.Contains(in.utterance, kw) {
			return []Action{ApplyForJob(kw)}
		}
	}
	return []Action{ShowJobs()}
}

func explicitNavigation(in resolveInput) []Action {
	var out []Action
	for _, page := range in.pages {
		p := strings.ToLower(page)
		matched := strings.Contains(in.utterance, p+pageMentionAfter)
		for _, verb := range navigationVerbs {
			if matched {
				break
			}
			matched = strings.Contains(in.reply, verb+p)
		}
		if matched {
			out = append(out, Navigate(page))
		}
	}
	return out
}

func topical(words []string, page string) func(resolveInput) []Action {
	return func(in resolveInput) []Action {
		if containsAny(in.utterance, words) {
			return []Action{Navigate(page)}
		}
		return nil
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func containsType(actions []Action, t ActionType) bool {
	for _, a := range actions {
		if a.Type == t {
			return true
		}
	}
	return false
}
