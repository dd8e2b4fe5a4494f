package domain

import "fmt"

// Default retrieval parameters. The similarity metric is cosine.
const (
	DefaultRetrievalLimit     = 5
	DefaultRetrievalThreshold = 0.7
)

// RetrievalOptions configures a similarity query.
type RetrievalOptions struct {
	// Limit is the maximum number of results to return (top-k).
	// Zero means DefaultRetrievalLimit.
	Limit int

	// Threshold is the minimum cosine similarity a result must meet.
	// Nil means DefaultRetrievalThreshold; an explicit zero is valid and
	// disables the cutoff.
	Threshold *float64
}

// NewThreshold returns a Threshold value for RetrievalOptions.
func NewThreshold(v float64) *float64 {
	return &v
}

// Normalise fills unset values with defaults.
func (o RetrievalOptions) Normalise() RetrievalOptions {
	if o.Limit == 0 {
		o.Limit = DefaultRetrievalLimit
	}
	if o.Threshold == nil {
		o.Threshold = NewThreshold(DefaultRetrievalThreshold)
	}
	return o
}

// Validate checks the option ranges: limit >= 1 and threshold in [0,1].
func (o RetrievalOptions) Validate() error {
	if o.Limit < 1 {
		return fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidInput, o.Limit)
	}
	if o.Threshold != nil && (*o.Threshold < 0 || *o.Threshold > 1) {
		return fmt.Errorf("%w: threshold must be in [0,1], got %g", ErrInvalidInput, *o.Threshold)
	}
	return nil
}
