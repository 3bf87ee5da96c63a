package collection

import (
	"time"

	"github.com/erp/backoffice/internal/domain/partner"
)

// Window is the time range a collection covers.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks the window is ordered.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() || !w.Start.Before(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// WindowSpec is a caller's request for a window: either explicit bounds or
// a relative look-back ending now.
type WindowSpec struct {
	Start      *time.Time
	End        *time.Time
	DaysBack   int
	MonthsBack int
}

// IsZero reports whether the caller left the window unspecified.
func (s WindowSpec) IsZero() bool {
	return s.Start == nil && s.End == nil && s.DaysBack == 0 && s.MonthsBack == 0
}

// ResolveWindow turns a spec into a concrete window. An empty spec falls back
// to the supplier's window defaults and then to fallbackDays. A look-back
// with both months and days covers their sum.
func ResolveWindow(spec WindowSpec, defaults partner.WindowDefaults, fallbackDays int, now time.Time) (Window, error) {
	if spec.DaysBack < 0 || spec.MonthsBack < 0 {
		return Window{}, ErrInvalidWindow
	}

	if spec.Start != nil {
		end := now
		if spec.End != nil {
			end = *spec.End
		}
		w := Window{Start: *spec.Start, End: end}
		return w, w.Validate()
	}
	if spec.End != nil {
		return Window{}, ErrInvalidWindow
	}

	months, days := spec.MonthsBack, spec.DaysBack
	if months == 0 && days == 0 {
		months, days = defaults.Months, defaults.Days
	}
	if months == 0 && days == 0 {
		days = fallbackDays
	}

	if months == 0 && days == 0 {
		return Window{}, ErrInvalidWindow
	}
	// Months and days add up: 1 month and 10 days back reaches 1 month
	// before now, then 10 more days.
	return Window{Start: now.AddDate(0, -months, 0).AddDate(0, 0, -days), End: now}, nil
}
