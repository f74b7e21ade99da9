package admission

import (
	"fmt"
	"time"
)

const (
	DefaultBurstLimit      = 5
	DefaultBurstWindow     = 5 * time.Second
	DefaultSustainedLimit  = 29
	DefaultSustainedWindow = 60 * time.Second
)

// Limits bounds admitted requests per key. Both limits are exclusive: once a
// window already holds Limit admissions, the next request is rejected.
type Limits struct {
	BurstLimit      int           `json:"burst_limit" mapstructure:"burst_limit"`
	BurstWindow     time.Duration `json:"burst_window" mapstructure:"burst_window"`
	SustainedLimit  int           `json:"sustained_limit" mapstructure:"sustained_limit"`
	SustainedWindow time.Duration `json:"sustained_window" mapstructure:"sustained_window"`
}

func DefaultLimits() Limits {
	return Limits{
		BurstLimit:      DefaultBurstLimit,
		BurstWindow:     DefaultBurstWindow,
		SustainedLimit:  DefaultSustainedLimit,
		SustainedWindow: DefaultSustainedWindow,
	}
}

func (l Limits) Validate() error {
	if l.BurstLimit <= 0 {
		return fmt.Errorf("%w: burst limit must be positive", ErrInvalidLimits)
	}
	if l.SustainedLimit <= 0 {
		return fmt.Errorf("%w: sustained limit must be positive", ErrInvalidLimits)
	}
	if l.BurstWindow <= 0 || l.SustainedWindow <= 0 {
		return fmt.Errorf("%w: windows must be positive", ErrInvalidLimits)
	}
	if l.BurstWindow > l.SustainedWindow {
		return fmt.Errorf("%w: burst window %s exceeds sustained window %s",
			ErrInvalidLimits, l.BurstWindow, l.SustainedWindow)
	}
	return nil
}
