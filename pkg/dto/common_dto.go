package dto

import "io"

// PhotoFile is an uploaded profile photo.
type PhotoFile struct {
	Reader   io.Reader
	FileName string
}

type PaginationQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// Normalize fills defaults and returns limit and offset.
func (q PaginationQuery) Normalize() (limit, offset int) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit = q.Limit
	if limit < 1 {
		limit = 20
	}
	return limit, (page - 1) * limit
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}
