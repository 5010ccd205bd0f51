package services

import (
	"context"
	"errors"
	"sync"
)

// ErrStaleResponse is returned by Refresh when the filters changed while
// the fetch was in flight. The result was dropped.
var ErrStaleResponse = errors.New("stale grants response discarded")

// GrantListView holds the state of one grants listing screen: filters,
// current page, the last loaded grants and the last error.
type GrantListView struct {
	svc *GrantService

	mu       sync.Mutex
	filter   GrantFilter
	page     int
	pageSize int
	grants   []GrantWithStats
	err      error
	loading  bool
	// epoch advances on every Refresh and SetFilters. Only the fetch holding
	// the latest token may commit.
	epoch uint64
	// fresh is false until grants have been loaded for the current filters.
	fresh bool
}

// GrantListState is a snapshot of a GrantListView.
type GrantListState struct {
	Filter  GrantFilter          `json:"filters"`
	Page    Page[GrantWithStats] `json:"page"`
	Loading bool                 `json:"loading"`
	Err     error                `json:"-"`
}

func NewGrantListView(svc *GrantService, pageSize int) *GrantListView {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &GrantListView{
		svc:      svc,
		filter:   DefaultGrantFilter(),
		page:     1,
		pageSize: pageSize,
		grants:   []GrantWithStats{},
	}
}

// SetFilters replaces the whole filter state and goes back to page 1. Any
// refresh already in flight becomes stale.
func (v *GrantListView) SetFilters(f GrantFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
	v.page = 1
	v.loading = false
	v.fresh = false
	v.epoch++
}

func (v *GrantListView) Filters() GrantFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Refresh loads the grants for the current filters. A failed load keeps the
// previously loaded grants and records the error. When fetches overlap only
// the most recently started one commits.
func (v *GrantListView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.epoch++
	epoch := v.epoch
	filter := v.filter
	v.loading = true
	v.mu.Unlock()

	grants, err := v.svc.ListGrants(ctx, filter)

	v.mu.Lock()
	defer v.mu.Unlock()
	if epoch != v.epoch {
		return ErrStaleResponse
	}
	v.loading = false
	if err != nil {
		v.err = err
		return err
	}
	v.grants = grants
	v.err = nil
	v.fresh = true
	v.page = ClampPage(v.page, v.totalPages())
	return nil
}

func (v *GrantListView) totalPages() int {
	return (len(v.grants) + v.pageSize - 1) / v.pageSize
}

// SetPage moves to page n, clamped to the pages available.
func (v *GrantListView) SetPage(n int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.page = ClampPage(n, v.totalPages())
	return v.page
}

func (v *GrantListView) State() GrantListState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return GrantListState{
		Filter:  v.filter,
		Page:    Paginate(v.grants, v.page, v.pageSize),
		Loading: v.loading,
		Err:     v.err,
	}
}

// Export serializes every grant matching the current filters, not only the
// visible page. Grants loaded under earlier filters are refetched first.
func (v *GrantListView) Export(ctx context.Context, format ExportFormat) (*Payload, error) {
	v.mu.Lock()
	fresh := v.fresh
	v.mu.Unlock()

	if !fresh {
		if err := v.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	v.mu.Lock()
	if !v.fresh {
		v.mu.Unlock()
		return nil, ErrStaleResponse
	}
	grants := make([]GrantWithStats, len(v.grants))
	copy(grants, v.grants)
	v.mu.Unlock()

	return ExportGrants(format, grants, v.svc.Now())
}
