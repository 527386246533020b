package core

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Page is a limit/offset window over a listing.
type Page struct {
	Limit  int `query:"limit" json:"limit"`
	Offset int `query:"offset" json:"offset"`
}

func NewPage(limit, offset int) Page {
	p := Page{Limit: limit, Offset: offset}
	p.Clean()
	return p
}

func (p *Page) Clean() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Bounds returns the [start, end) slice bounds of the page over n items.
func (p Page) Bounds(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
