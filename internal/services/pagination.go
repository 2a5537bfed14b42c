package services

import "github.com/inkpress/apiserver/types"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects a zero-based page of a listing.
type PageRequest struct {
	Page int
	Size int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func paginate[T any](items []T, req PageRequest) types.Page[T] {
	req = req.normalize()
	return types.NewPage(items, req.Page, req.Size)
}
