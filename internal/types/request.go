package types

// Page selects a slice of a result set.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Request describes one resource-layer operation.
type Request struct {
	Type string
	ID   string
	// Filter maps an attribute name to a value, a list of values or, for
	// relationships, an object. Values may carry a leading ":" (exact) or
	// "~" (fuzzy) marker.
	Filter map[string]any
	// Sort names one attribute; a leading "-" sorts descending.
	Sort string
	Page *Page
	// Relationships maps a relationship attribute to the id it must reference.
	Relationships map[string]string
}
