package types

// Page is one slice of a paginated listing. Number is zero-based.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Size          int  `json:"size"`
	Number        int  `json:"number"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// NewPage cuts page number of the given size out of items.
func NewPage[T any](items []T, number, size int) Page[T] {
	if size < 1 {
		size = 1
	}
	if number < 0 {
		number = 0
	}

	total := len(items)
	totalPages := (total + size - 1) / size

	start := total
	if number <= total/size {
		start = min(number*size, total)
	}
	end := start + size
	if end > total {
		end = total
	}

	content := make([]T, end-start)
	copy(content, items[start:end])

	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        number,
		First:         number == 0,
		Last:          number >= totalPages-1,
	}
}

// MapPage converts the content of a page while keeping its counters.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	content := make([]U, len(p.Content))
	for i, item := range p.Content {
		content[i] = fn(item)
	}
	return Page[U]{
		Content:       content,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Size:          p.Size,
		Number:        p.Number,
		First:         p.First,
		Last:          p.Last,
	}
}
