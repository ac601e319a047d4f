package tabular

import "FeedbackInsights/internal/extractor"

// NewRegistry returns a registry with every supported format in detection
// order.
func NewRegistry() *extractor.Registry {
	reg := extractor.NewRegistry()
	reg.Register(XLSX{})
	reg.Register(HTML{})
	reg.Register(CSV{})
	return reg
}
