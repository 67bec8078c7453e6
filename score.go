package aclkit

// noMatch is the score of a rule that cannot apply to a request.
const noMatch = -1

// dimensionWeight scores one rule dimension against the same request
// dimension. Exact agreement outranks a wildcard rule, which outranks a
// wildcard request; two different concrete values do not match at all.
func dimensionWeight(ruleVal, reqVal string) int {
	switch {
	case ruleVal == reqVal:
		return 3
	case ruleVal == All:
		return 2
	case reqVal == All:
		return 1
	default:
		return noMatch
	}
}

// MatchingScore rates how specifically a rule applies to a request.
//
// Each dimension (resource, then property, then access kind) contributes a
// weight in 0..3, packed as base-4 digits from most significant (resource)
// to least (access kind), so a more specific match on an earlier dimension
// always outranks any combination of later ones. The final base-4 digit
// ranks the rule's permission strength, so between two rules of equal
// specificity the stronger permission scores higher without ever
// outweighing specificity.
//
// A rule whose concrete dimension disagrees with the request's concrete
// value cannot apply; MatchingScore returns -1.
func MatchingScore(rule Rule, req AccessRequest) int {
	score := 0

	for _, dim := range [3][2]string{
		{rule.Resource, req.Resource},
		{rule.Property, req.Property},
		{string(rule.AccessKind), string(req.AccessKind)},
	} {
		w := dimensionWeight(dim[0], dim[1])
		if w == noMatch {
			return noMatch
		}
		score = score*4 + w
	}

	permission := rule.Permission
	if permission == "" || permission == PermissionDefault {
		permission = PermissionAllow
	}
	score = score*4 + permission.Strength() - 1

	return score
}
