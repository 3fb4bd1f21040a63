package filter

import (
	"fmt"
	"os"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"
)

// fileSpec is the on-disk shape of a filter file:
//
//	include:
//	  河北: [石家庄, 保定]
//	  北京: ~
//	exclude:
//	  河北: [保定]
//	include_dates: [2024-01-02]
//	exclude_dates: []
type fileSpec struct {
	Include      any      `yaml:"include"`
	Exclude      any      `yaml:"exclude"`
	IncludeDates []string `yaml:"include_dates"`
	ExcludeDates []string `yaml:"exclude_dates"`
}

// LoadFile reads a YAML filter file.
func LoadFile(path string) (Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Filter{}, fmt.Errorf("failed to read filter file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML filter document. A missing or null include/exclude key
// keeps the Filter default for it.
func Parse(data []byte) (Filter, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Filter{}, fmt.Errorf("failed to parse filter file: %w", err)
	}

	var f Filter
	var err error
	if spec.Include != nil {
		if f.Include, err = ParseNode(spec.Include); err != nil {
			return Filter{}, fmt.Errorf("include: %w", err)
		}
	}
	if spec.Exclude != nil {
		if f.Exclude, err = ParseNode(spec.Exclude); err != nil {
			return Filter{}, fmt.Errorf("exclude: %w", err)
		}
	}
	if spec.IncludeDates != nil {
		if f.IncludeDates, err = parseDates(spec.IncludeDates); err != nil {
			return Filter{}, fmt.Errorf("include_dates: %w", err)
		}
	}
	if f.ExcludeDates, err = parseDates(spec.ExcludeDates); err != nil {
		return Filter{}, fmt.Errorf("exclude_dates: %w", err)
	}
	return f, nil
}

func parseDates(values []string) (DateSet, error) {
	set := NewDateSet()
	for _, v := range values {
		d, err := civil.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", v, err)
		}
		set[d] = struct{}{}
	}
	return set, nil
}
