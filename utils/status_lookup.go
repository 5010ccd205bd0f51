package utils

import (
	"strings"

	"grants-management-api/models"
)

var (
	// grantStatusSynonyms maps each canonical grant status to the labels the
	// dashboard and legacy imports use for it.
	grantStatusSynonyms = map[models.GrantStatus][]string{
		models.GrantStatusApplication: {
			"application",
			"applied",
			"submitted_application",
		},
		models.GrantStatusPending: {
			"pending",
			"awaiting",
			"under_review",
			"under review",
		},
		models.GrantStatusActive: {
			"active",
			"open",
			"ongoing",
		},
		models.GrantStatusOverdue: {
			"overdue",
			"late",
		},
		models.GrantStatusClosed: {
			"closed",
			"completed",
			"finished",
		},
		models.GrantStatusCancelled: {
			"cancelled",
			"canceled",
			"terminated",
		},
	}
	grantStatusAliasToCanonical = buildGrantStatusAliasMap()
)

func buildGrantStatusAliasMap() map[string]models.GrantStatus {
	aliasMap := make(map[string]models.GrantStatus)
	for canonical, synonyms := range grantStatusSynonyms {
		aliasMap[normalizeStatusCode(string(canonical))] = canonical
		for _, alias := range synonyms {
			if normalized := normalizeStatusCode(alias); normalized != "" {
				aliasMap[normalized] = canonical
			}
		}
	}
	return aliasMap
}

func normalizeStatusCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// NormalizeGrantStatus resolves an alias to its canonical status. Unknown
// values come back trimmed and lowercased so callers can still match on
// them (and find nothing).
func NormalizeGrantStatus(raw string) models.GrantStatus {
	normalized := normalizeStatusCode(raw)
	if canonical, ok := grantStatusAliasToCanonical[normalized]; ok {
		return canonical
	}
	return models.GrantStatus(normalized)
}

// IsKnownGrantStatus reports whether raw names a grant status or one of its
// aliases.
func IsKnownGrantStatus(raw string) bool {
	_, ok := grantStatusAliasToCanonical[normalizeStatusCode(raw)]
	return ok
}
