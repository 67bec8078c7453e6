package aclkit

import "sort"

// scoredRule pairs a candidate rule with its matching score so sorting and
// walking never recompute it.
type scoredRule struct {
	rule  Rule
	score int
}

// ResolvePermission decides which permission a set of rules grants for a
// request. It returns a copy of the request with Permission filled in.
//
// Rules that do not match the request are discarded. The remaining
// candidates are ranked by MatchingScore, most specific first; candidates
// with equal scores keep their original relative order, so callers control
// tie-breaks through rule ordering.
//
// For a concrete request the best candidate wins outright. For a wildcard
// request a candidate naming exactly the requested resource, property and
// access kind wins if one exists; otherwise the strongest permission among
// all candidates wins, so asking "what can happen to this resource?" never
// understates a DENY hiding behind a more specific rule.
//
// With no matching candidates the request resolves to DEFAULT.
func ResolvePermission(rules []Rule, req AccessRequest) AccessRequest {
	candidates := make([]scoredRule, 0, len(rules))
	for _, rule := range rules {
		if score := MatchingScore(rule, req); score >= 0 {
			candidates = append(candidates, scoredRule{rule: rule, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	resolved := req
	resolved.Permission = PermissionDefault

	for _, candidate := range candidates {
		if !req.IsWildcard() {
			resolved.Permission = candidate.rule.EffectivePermission()
			break
		}
		if req.ExactlyMatches(candidate.rule) {
			resolved.Permission = candidate.rule.EffectivePermission()
			break
		}
		if candidate.rule.EffectivePermission().Stronger(resolved.Permission) {
			resolved.Permission = candidate.rule.EffectivePermission()
		}
	}

	return resolved
}
