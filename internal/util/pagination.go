package util

const DefaultPageSize = 10

// Calculate turns 1-based page/size query values into an offset and limit.
// Out-of-range values get defaults, so callers can pass raw query input.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	from = (page - 1) * size
	return from, size
}

// TotalPages is the number of pages a total splits into at the given limit.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
