package query

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// Pagination describes one page of a paginated listing.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	LastPage    int  `json:"last_page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

// Paginate computes the page window for total rows. From and To are nil
// when the page is past the end.
func Paginate(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	p := Pagination{
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}

	offset := (page - 1) * perPage
	if offset < total {
		from := offset + 1
		to := offset + perPage
		if to > total {
			to = total
		}
		p.From = &from
		p.To = &to
	}
	return p
}
