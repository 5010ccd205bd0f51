package services

import (
	"testing"
	"time"

	"grants-management-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaultsAndAliases(t *testing.T) {
	q := DefaultGrantFilter().Normalize()
	assert.True(t, q.IsUnfiltered())
	assert.Equal(t, DefaultSort, q.Sort)

	q = GrantFilter{Search: "  WATER ", Status: "Canceled", Donor: "", Region: "All", Sort: "bogus"}.Normalize()
	assert.Equal(t, "water", q.Search)
	assert.Equal(t, models.GrantStatusCancelled, q.Status)
	assert.Empty(t, q.Donor)
	assert.Empty(t, q.Region)
	assert.Equal(t, DefaultSort, q.Sort)
	assert.False(t, q.IsUnfiltered())
}

func TestNormalizeKeepsUnknownValues(t *testing.T) {
	q := GrantFilter{Status: "Frozen"}.Normalize()
	assert.Equal(t, models.GrantStatus("frozen"), q.Status)
	assert.False(t, q.Matches(models.Grant{Status: models.GrantStatusActive}))
}

func TestMatchesSearchesNameAndDonor(t *testing.T) {
	g := models.Grant{Name: "Rural Clinics", DonorName: "Health Trust", Status: models.GrantStatusActive, Region: "North"}

	assert.True(t, GrantFilter{Search: "clinic"}.Normalize().Matches(g))
	assert.True(t, GrantFilter{Search: "TRUST"}.Normalize().Matches(g))
	assert.False(t, GrantFilter{Search: "school"}.Normalize().Matches(g))
	assert.True(t, GrantFilter{Region: "north", Status: "open"}.Normalize().Matches(g))
	assert.False(t, GrantFilter{Donor: "Other"}.Normalize().Matches(g))
}

func TestSortGrants(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	grants := []models.Grant{
		{GrantID: 1, Name: "b", Amount: decimal.NewFromInt(30), CreatedAt: base},
		{GrantID: 2, Name: "a", Amount: decimal.NewFromInt(10), CreatedAt: base.Add(time.Hour)},
		{GrantID: 3, Name: "c", Amount: decimal.NewFromInt(20), CreatedAt: base.Add(2 * time.Hour)},
	}
	ids := func() []uint {
		out := make([]uint, len(grants))
		for i, g := range grants {
			out[i] = g.GrantID
		}
		return out
	}

	SortGrants(grants, SortNewest)
	assert.Equal(t, []uint{3, 2, 1}, ids())
	SortGrants(grants, SortNameAsc)
	assert.Equal(t, []uint{2, 1, 3}, ids())
	SortGrants(grants, SortAmountDesc)
	assert.Equal(t, []uint{1, 3, 2}, ids())
	SortGrants(grants, SortOldest)
	assert.Equal(t, []uint{1, 2, 3}, ids())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_done\\`, escapeLike(`100%_done\`))
}
