package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

const (
	MAX_PAGE_SIZE = 100
	MIN_PAGE_SIZE = 100
)

type BaseModel struct {
	ID        uint      `json:"id,omitempty" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Paging struct {
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Pages int64 `json:"pages"`
}

// Page requests one page of a list. The zero value returns the whole list.
type Page struct {
	Number int
	Size   int
}

func (p Page) enabled() bool {
	return p.Number > 0
}

// ---------------------------------------------------------------------------------//
// Scopes
// --------------------------------------------------------------------------------//

func paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page == 0 {
			page = 1
		}

		offset := (page - 1) * clampPageSize(pageSize)
		return db.Offset(offset).Limit(clampPageSize(pageSize))
	}
}

// listPage applies page to query when it is enabled and returns the matching Paging.
// query must already carry its filters.
func listPage(query *gorm.DB, page Page) (*gorm.DB, *Paging, error) {
	if !page.enabled() {
		return query, nil, nil
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, err
	}

	paging := newPaging(int64(page.Number), int64(clampPageSize(page.Size)), total)
	return query.Scopes(paginate(page.Number, page.Size)), paging, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func clampPageSize(pageSize int) int {
	switch {
	case pageSize > MAX_PAGE_SIZE:
		return MAX_PAGE_SIZE
	case pageSize <= 0:
		return MIN_PAGE_SIZE
	}

	return pageSize
}

func newPaging(page, pageSize, total int64) *Paging {
	paging := &Paging{Page: page, Total: total}
	if paging.Page == 0 {
		paging.Page = 1
	}

	paging.Pages = int64(math.Ceil(float64(paging.Total) / float64(pageSize)))
	if paging.Pages == 0 {
		paging.Pages = 1
	}

	return paging
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
