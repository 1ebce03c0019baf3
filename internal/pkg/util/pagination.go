package util

// PageMeta 偏移分页元信息
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// NewPageMeta 计算偏移分页元信息，hasMore = page*limit < total
func NewPageMeta(page, limit int, total int64) PageMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    int64(page)*int64(limit) < total,
	}
}

// NormalizePage 归一化页码与分页大小
func NormalizePage(page, limit, defaultSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultSize
	}
	if limit > maxSize {
		limit = maxSize
	}
	return page, limit
}
