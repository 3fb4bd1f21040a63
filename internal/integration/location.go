package integration

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const locationDataPath = "/data/city3jdata/"

// LocationIDs resolves region names to the numeric ids used by the portal.
// Province ids have 5 digits, city ids 7 and district ids 9; each level
// extends its parent's id.
type LocationIDs struct {
	baseURL string
	fetcher TextFetcher
}

// NewLocationIDs creates a new id resolver
func NewLocationIDs(baseURL string, fetcher TextFetcher) *LocationIDs {
	if baseURL == "" {
		baseURL = DefaultWeatherBaseURL
	}
	return &LocationIDs{baseURL: strings.TrimSuffix(baseURL, "/"), fetcher: fetcher}
}

// ProvincesIDs maps province names to their ids
func (l *LocationIDs) ProvincesIDs(ctx context.Context) (map[string]int, error) {
	return l.fetchIDs(ctx, "china.html", "")
}

// CitiesIDs maps the city names of a province to their ids
func (l *LocationIDs) CitiesIDs(ctx context.Context, provinceID int) (map[string]int, error) {
	return l.fetchIDs(ctx, fmt.Sprintf("provshi/%d.html", provinceID), strconv.Itoa(provinceID))
}

// DistrictsIDs maps the district names of a city to their ids
func (l *LocationIDs) DistrictsIDs(ctx context.Context, cityID int) (map[string]int, error) {
	return l.fetchIDs(ctx, fmt.Sprintf("station/%d.html", cityID), strconv.Itoa(cityID))
}

// fetchIDs reads a {"suffix": "name"} table; a missing table is empty
func (l *LocationIDs) fetchIDs(ctx context.Context, path, prefix string) (map[string]int, error) {
	text, err := l.fetcher.FetchText(ctx, l.baseURL+locationDataPath+path)
	if err != nil {
		if IsNotFound(err) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	text = strings.TrimSpace(text)
	if !gjson.Valid(text) || !gjson.Parse(text).IsObject() {
		return nil, malformed(text, "location table is not a JSON object", nil)
	}

	ids := make(map[string]int)
	var parseErr error
	gjson.Parse(text).ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.Atoi(prefix + key.String())
		if err != nil {
			parseErr = malformed(key.Raw, "invalid location id", err)
			return false
		}
		ids[value.String()] = id
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return ids, nil
}

// IDFromName returns the id of the deepest named level, or 0 when any level
// is unknown. Empty city or district names stop the lookup at the level above.
func (l *LocationIDs) IDFromName(ctx context.Context, province, city, district string) (int, error) {
	provinces, err := l.ProvincesIDs(ctx)
	if err != nil {
		return 0, err
	}
	id, ok := provinces[province]
	if !ok {
		return 0, nil
	}
	if city == "" {
		return id, nil
	}

	cities, err := l.CitiesIDs(ctx, id)
	if err != nil {
		return 0, err
	}
	if id, ok = cities[city]; !ok {
		return 0, nil
	}
	if district == "" {
		return id, nil
	}

	districts, err := l.DistrictsIDs(ctx, id)
	if err != nil {
		return 0, err
	}
	return districts[district], nil
}

// NameFromID returns the names from province down to the level of id, or
// nil when id is unknown
func (l *LocationIDs) NameFromID(ctx context.Context, id int) ([]string, error) {
	s := strconv.Itoa(id)
	var (
		table map[string]int
		err   error
		names []string
	)
	switch len(s) {
	case 5:
		table, err = l.ProvincesIDs(ctx)
	case 7, 9:
		parent, _ := strconv.Atoi(s[:len(s)-2])
		names, err = l.NameFromID(ctx, parent)
		if err != nil || names == nil {
			return nil, err
		}
		if len(s) == 7 {
			table, err = l.CitiesIDs(ctx, parent)
		} else {
			table, err = l.DistrictsIDs(ctx, parent)
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for name, candidate := range table {
		if candidate == id {
			return append(names, name), nil
		}
	}
	return nil, nil
}

// HaveCommonArea reports whether one id lies within the other
func HaveCommonArea(id1, id2 int) bool {
	s1, s2 := strconv.Itoa(id1), strconv.Itoa(id2)
	return strings.HasPrefix(s1, s2) || strings.HasPrefix(s2, s1)
}
