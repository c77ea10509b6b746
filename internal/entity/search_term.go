package entity

// SearchTerm is one keyword/location pair driving a single search.
type SearchTerm struct {
	Keyword  string `json:"keyword"`
	Location string `json:"location"`
}

// Query is the text typed into the search box. It doubles as the term's
// identity in logs and reports.
func (t SearchTerm) Query() string {
	return t.Keyword + " " + t.Location
}

func (t SearchTerm) String() string {
	return t.Query()
}

// CrossTerms expands keywords × locations, keyword-major, preserving input order.
// Duplicates are kept.
func CrossTerms(keywords, locations []string) []SearchTerm {
	terms := make([]SearchTerm, 0, len(keywords)*len(locations))
	for _, k := range keywords {
		for _, l := range locations {
			terms = append(terms, SearchTerm{Keyword: k, Location: l})
		}
	}
	return terms
}
