package domainid

import "strings"

const (
	CartPoleBalanceOriginal = "cartpole-balance-original"
	CartPoleBalanceModern   = "cartpole-balance-modern"
	PST                     = "pst"
)

// Normalize canonicalizes domain names and their common aliases. Unknown
// names come back lower-cased and dash-separated.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	if canonical, ok := normalizeKnownAlias(normalized); ok {
		return canonical
	}
	return normalized
}

func normalizeKnownAlias(normalized string) (string, bool) {
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalDomainName(candidate); ok {
			return canonical, true
		}
	}
	return "", false
}

func aliasCandidates(normalized string) []string {
	candidate := strings.TrimPrefix(normalized, "domain-")
	candidate = strings.Trim(candidate, "-")

	candidates := []string{normalized}
	if candidate != "" && candidate != normalized {
		candidates = append(candidates, candidate)
	}
	if trimmed := trimSimSuffix(candidate); trimmed != "" && trimmed != candidate {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

func trimSimSuffix(value string) string {
	switch {
	case strings.HasSuffix(value, "-sim"):
		return strings.TrimSuffix(value, "-sim")
	case strings.HasSuffix(value, "-domain"):
		return strings.TrimSuffix(value, "-domain")
	default:
		return value
	}
}

func canonicalDomainName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "cartpole", "cartpolebalance", "cartpolebalanceoriginal", "cartpoleoriginal", "balanceoriginal":
		return CartPoleBalanceOriginal, true
	case "cartpolebalancemodern", "cartpolemodern", "balancemodern":
		return CartPoleBalanceModern, true
	case "pst", "uav", "persistentsearchandtrack", "persistentsearchtrack":
		return PST, true
	default:
		return "", false
	}
}
