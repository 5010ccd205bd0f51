package services

import (
	"sort"
	"strings"

	"grants-management-api/models"
	"grants-management-api/utils"
)

// FilterAll is the value of a categorical filter that matches everything.
const FilterAll = "all"

// SortKey selects the ordering of a grant listing.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortNameAsc    SortKey = "name_asc"
	SortNameDesc   SortKey = "name_desc"
	SortAmountDesc SortKey = "amount_desc"
	SortAmountAsc  SortKey = "amount_asc"
	SortUpdated    SortKey = "updated"

	DefaultSort = SortNewest
)

var grantSortClauses = map[SortKey]string{
	SortNewest:     "created_at DESC, grant_id DESC",
	SortOldest:     "created_at ASC, grant_id ASC",
	SortNameAsc:    "name ASC, grant_id ASC",
	SortNameDesc:   "name DESC, grant_id DESC",
	SortAmountDesc: "amount DESC, grant_id DESC",
	SortAmountAsc:  "amount ASC, grant_id ASC",
	SortUpdated:    "updated_at DESC, grant_id DESC",
}

// OrderClause returns the SQL ORDER BY clause for the key.
func (k SortKey) OrderClause() string {
	if clause, ok := grantSortClauses[k]; ok {
		return clause
	}
	return grantSortClauses[DefaultSort]
}

// GrantFilter is the filter state a grants listing is driven by.
type GrantFilter struct {
	Search      string `json:"search" form:"search"`
	Donor       string `json:"donor" form:"donor"`
	Status      string `json:"status" form:"status"`
	Region      string `json:"region" form:"region"`
	ProgramArea string `json:"program_area" form:"program_area"`
	Sort        string `json:"sort" form:"sort"`
}

// DefaultGrantFilter matches every grant, newest first.
func DefaultGrantFilter() GrantFilter {
	return GrantFilter{
		Donor:       FilterAll,
		Status:      FilterAll,
		Region:      FilterAll,
		ProgramArea: FilterAll,
		Sort:        string(DefaultSort),
	}
}

// GrantQuery is the normalized, query-ready form of a GrantFilter. Empty
// categorical fields mean "all".
type GrantQuery struct {
	Search      string             `json:"search"`
	Donor       string             `json:"donor"`
	Status      models.GrantStatus `json:"status"`
	Region      string             `json:"region"`
	ProgramArea string             `json:"program_area"`
	Sort        SortKey            `json:"sort"`
}

func categorical(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, FilterAll) {
		return ""
	}
	return v
}

// Normalize trims and canonicalizes the filter. Values it does not
// recognize are kept as-is so they match nothing downstream.
func (f GrantFilter) Normalize() GrantQuery {
	q := GrantQuery{
		Search:      strings.ToLower(strings.TrimSpace(f.Search)),
		Donor:       categorical(f.Donor),
		Region:      categorical(f.Region),
		ProgramArea: categorical(f.ProgramArea),
		Sort:        DefaultSort,
	}
	if status := categorical(f.Status); status != "" {
		q.Status = utils.NormalizeGrantStatus(status)
	}
	if key := SortKey(strings.ToLower(strings.TrimSpace(f.Sort))); key != "" {
		if _, ok := grantSortClauses[key]; ok {
			q.Sort = key
		}
	}
	return q
}

// IsUnfiltered reports whether the query selects every grant.
func (q GrantQuery) IsUnfiltered() bool {
	return q.Search == "" && q.Donor == "" && q.Status == "" && q.Region == "" && q.ProgramArea == ""
}

// Matches applies the query to a single grant in memory.
func (q GrantQuery) Matches(g models.Grant) bool {
	if q.Status != "" && g.Status != q.Status {
		return false
	}
	if q.Donor != "" && !strings.EqualFold(g.DonorName, q.Donor) {
		return false
	}
	if q.Region != "" && !strings.EqualFold(g.Region, q.Region) {
		return false
	}
	if q.ProgramArea != "" && !strings.EqualFold(g.ProgramArea, q.ProgramArea) {
		return false
	}
	if q.Search != "" {
		search := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(g.Name), search) &&
			!strings.Contains(strings.ToLower(g.DonorName), search) {
			return false
		}
	}
	return true
}

// SortGrants orders grants in place the same way OrderClause does in SQL.
func SortGrants(grants []models.Grant, key SortKey) {
	if _, ok := grantSortClauses[key]; !ok {
		key = DefaultSort
	}
	less := func(a, b models.Grant) bool {
		switch key {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.GrantID < b.GrantID
		case SortNameAsc:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.GrantID < b.GrantID
		case SortNameDesc:
			if a.Name != b.Name {
				return a.Name > b.Name
			}
			return a.GrantID > b.GrantID
		case SortAmountDesc:
			if c := a.Amount.Cmp(b.Amount); c != 0 {
				return c > 0
			}
			return a.GrantID > b.GrantID
		case SortAmountAsc:
			if c := a.Amount.Cmp(b.Amount); c != 0 {
				return c < 0
			}
			return a.GrantID < b.GrantID
		case SortUpdated:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return a.GrantID > b.GrantID
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.GrantID > b.GrantID
		}
	}
	sort.SliceStable(grants, func(i, j int) bool { return less(grants[i], grants[j]) })
}

// escapeLike escapes MySQL LIKE metacharacters in a user supplied term.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
