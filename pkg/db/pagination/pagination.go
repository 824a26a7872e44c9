package pagination

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

type Pagination struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// Normalize clamps page and limit. Out of range limits fall back to def.
func (p Pagination) Normalize(def, max int) Pagination {
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 || p.Limit > max {
		p.Limit = def
	}
	return p
}

func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	info := PageInfo{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
	}
	if p.Limit > 0 {
		info.TotalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	info.HasMore = int64(p.Offset()+p.Limit) < total
	return info
}
