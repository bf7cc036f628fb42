package domain

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest — параметры постраничной выборки. Page начинается с 1.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string // asc | desc
}

// Normalize подставляет значения по умолчанию: page=1, limit=20, timestamp desc.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.SortBy == "" {
		p.SortBy = "timestamp"
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination: totalPages = ceil(total/limit), hasNext = page < totalPages, hasPrev = page > 1.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
