package models

// Role is derived per request from the records attached to a principal.
type Role string

const (
	RoleNone    Role = "none"
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// MaxPage bounds the page number so the row offset cannot overflow.
const MaxPage = 1_000_000

// Normalize clamps page and size to sane bounds and returns the row offset.
func (p *Pagination) Normalize() int {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize <= 0 || p.PageSize > 100 {
		p.PageSize = 20
	}
	return (p.Page - 1) * p.PageSize
}
