package filter

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/abelzeko/weather-bot/internal/entities"
)

// Filter bundles the region and date filters applied to a forecast.
// The zero Filter keeps everything.
type Filter struct {
	Include      *Node   // nil: every region
	Exclude      *Node   // nil: no region; use Unbounded() to exclude everything
	IncludeDates DateSet // nil: every date
	ExcludeDates DateSet
}

// Validate checks both region trees before any row is evaluated.
func (f Filter) Validate() error {
	if err := f.Include.Validate(); err != nil {
		return fmt.Errorf("include: %w", err)
	}
	if err := f.Exclude.Validate(); err != nil {
		return fmt.Errorf("exclude: %w", err)
	}
	return nil
}

// Region evaluates path against the include and exclude trees.
func (f Filter) Region(path Path) (Level, error) {
	excluded := f.Exclude
	if excluded == nil {
		excluded = Leaf()
	}
	return EvaluateRegion(path, f.Include, excluded)
}

// RejectsDate reports whether records dated d are filtered out.
func (f Filter) RejectsDate(d civil.Date) bool {
	return EvaluateDate(d, f.IncludeDates, f.ExcludeDates)
}

// Apply returns the records that pass both filters, in their original order.
func (f Filter) Apply(records []entities.WeatherRecord) ([]entities.WeatherRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	kept := make([]entities.WeatherRecord, 0, len(records))
	for _, r := range records {
		if f.RejectsDate(r.Date) {
			continue
		}
		level, err := f.Region(Path{r.Province, r.City, r.District})
		if err != nil {
			return nil, err
		}
		if level != Keep {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}
