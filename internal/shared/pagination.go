package shared

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Window converts 1-based page parameters into a SQL limit and offset.
// Zero or negative values fall back to the first page at the default size,
// and the page size is capped so a single request cannot scan the table.
func Window(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
