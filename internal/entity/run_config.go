package entity

// RunConfig is the immutable input of a single run.
type RunConfig struct {
	DriverPath   string
	TargetDomain string
	Keywords     []string
	Cities       []string
}

// TotalTerms is the size of the keyword × city cross product.
func (c RunConfig) TotalTerms() int {
	return len(c.Keywords) * len(c.Cities)
}

// Terms returns the run's work items in processing order.
func (c RunConfig) Terms() []SearchTerm {
	return CrossTerms(c.Keywords, c.Cities)
}
