package model

// SearchFilter narrows a document search. Empty fields apply no filter.
type SearchFilter struct {
	OwnerID      string
	DocumentType DocumentType
	Query        string
}

// Pagination describes one page of a result set.
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewPagination computes page metadata for total rows split into perPage-sized
// pages. perPage must be positive.
func NewPagination(page, perPage, total int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// DocumentPage is a page of search results.
type DocumentPage struct {
	Items      []Document `json:"documents"`
	Pagination Pagination `json:"pagination"`
}
