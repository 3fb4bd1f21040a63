package integration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/abelzeko/weather-bot/internal/entities"
	"github.com/abelzeko/weather-bot/internal/filter"
)

const (
	rowSpanClass       = "rowsPan"
	dayColumnSuffix    = "白天"
	nightColumnSuffix  = "夜间"
	phenomenonHeader   = "天气现象"
	missingPlaceholder = "-"
	updateTimeLayout   = "2006-01-02 15:04"
)

var (
	dateTabRe    = regexp.MustCompile(`\((\d{1,2})月(\d{1,2})日\)`)
	districtIDRe = regexp.MustCompile(`(\d+)\.shtml$`)
)

// rowGroupState is the header carried forward from a row-spanning cell to
// the rows below it. It lives for one page.
type rowGroupState struct {
	set            bool
	province       string
	provinceURL    string
	city           string
	provincialCity bool
}

type forecastPage struct {
	updateTime   time.Time
	label        string // Top-level area of the page: a province or a larger region
	labelURL     string
	provincePage bool
}

type dateBlock struct {
	date  civil.Date
	block Element
}

// DecodeForecast turns a text forecast page into weather records in page
// order, skipping whatever f rejects. Any structural surprise aborts the
// whole page with a *MalformedSourceError.
func DecodeForecast(root Element, f filter.Filter) ([]entities.WeatherRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	content, err := first(root, "div.contentboxTab")
	if err != nil {
		return nil, err
	}

	page, err := decodePageHeader(content)
	if err != nil {
		return nil, err
	}

	if page.provincePage {
		level, err := f.Region(filter.Path{page.label, "", ""})
		if err != nil {
			return nil, err
		}
		if level == filter.DropProvince {
			return nil, nil
		}
	}

	blocks, err := decodeDateBlocks(content, page.updateTime, f)
	if err != nil {
		return nil, err
	}

	var records []entities.WeatherRecord
	var state rowGroupState
	for _, b := range blocks {
		for _, table := range b.block.Children() {
			if table.Tag() != "div" {
				continue
			}
			decoded, err := decodeRowGroup(table, page, b.date, &state, f)
			if err != nil {
				return nil, err
			}
			records = append(records, decoded...)
		}
	}
	return records, nil
}

// decodePageHeader reads the update time span and the area anchor right
// before it.
func decodePageHeader(content Element) (forecastPage, error) {
	var page forecastPage
	var area Element
	var span Element
	for _, el := range content.Find("a, span") {
		if el.Tag() == "span" {
			span = el
			break
		}
		area = el
	}
	if span == nil {
		return page, malformed(content.HTML(), "update time span not found", nil)
	}
	if area == nil {
		return page, malformed(content.HTML(), "area anchor not found before update time", nil)
	}

	updateTime, err := parseUpdateTime(span.Text())
	if err != nil {
		return page, err
	}
	page.updateTime = updateTime
	page.label = strings.TrimSpace(area.Text())
	page.labelURL, _ = area.Attr("href")
	page.provincePage = entities.IsProvince(page.label)
	return page, nil
}

// parseUpdateTime reads the trailing "YYYY-MM-DD HH:MM" of the update span
func parseUpdateTime(text string) (time.Time, error) {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) < len(updateTimeLayout) {
		return time.Time{}, malformed(text, "update time too short", nil)
	}
	raw := string(runes[len(runes)-len(updateTimeLayout):])
	t, err := time.ParseInLocation(updateTimeLayout, raw, entities.ChinaTimezone)
	if err != nil {
		return time.Time{}, malformed(text, "invalid update time", err)
	}
	return t, nil
}

// decodeDateBlocks pairs each date tab with its day block and drops the
// dates rejected by f.
func decodeDateBlocks(content Element, updateTime time.Time, f filter.Filter) ([]dateBlock, error) {
	hanml, err := first(content, "div.hanml")
	if err != nil {
		return nil, err
	}
	tabs := hanml.Find("div.conMidtab")
	labels := content.Find("ul.day_tabs li")
	if len(labels) == 0 {
		return nil, malformed(content.HTML(), "no date tabs", nil)
	}
	if len(labels) > len(tabs) {
		return nil, malformed(hanml.HTML(), fmt.Sprintf("%d date tabs but %d day blocks", len(labels), len(tabs)), nil)
	}

	var blocks []dateBlock
	for n, li := range labels {
		d, err := parseDateTab(li.Text(), updateTime)
		if err != nil {
			return nil, err
		}
		if f.RejectsDate(d) {
			continue
		}
		blocks = append(blocks, dateBlock{date: d, block: tabs[n]})
	}
	return blocks, nil
}

// parseDateTab reads a "周三(1月3日)" tab label. The label has no year; the
// year that puts the date nearest to the update time is used, which handles
// forecast windows crossing a new year in either direction.
func parseDateTab(text string, updateTime time.Time) (civil.Date, error) {
	m := dateTabRe.FindStringSubmatch(text)
	if m == nil {
		return civil.Date{}, malformed(text, "invalid date tab", nil)
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	d, ok := nearestDate(time.Month(month), day, civil.DateOf(updateTime))
	if !ok {
		return civil.Date{}, malformed(text, "date tab is not a calendar date", nil)
	}
	return d, nil
}

func nearestDate(month time.Month, day int, ref civil.Date) (civil.Date, bool) {
	var best civil.Date
	bestDist := -1
	for _, year := range []int{ref.Year - 1, ref.Year, ref.Year + 1} {
		d := civil.Date{Year: year, Month: month, Day: day}
		if !d.IsValid() {
			continue
		}
		dist := d.DaysSince(ref)
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best, bestDist >= 0
}

// decodeRowGroup decodes one region table of a day block.
func decodeRowGroup(table Element, page forecastPage, date civil.Date, state *rowGroupState, f filter.Filter) ([]entities.WeatherRecord, error) {
	var records []entities.WeatherRecord
	for _, tr := range table.Find("tr") {
		tds := tr.Find("td")
		if len(tds) < 4 {
			return nil, malformed(tr.HTML(), "row has fewer than 4 cells", nil)
		}
		if isColumnHeader(tds) {
			continue
		}

		if tds[0].HasClass(rowSpanClass) {
			if err := state.apply(tds[0], page); err != nil {
				return nil, err
			}
			tds = tds[1:]
		}
		if !state.set {
			return nil, malformed(tr.HTML(), "data row before any row group header", nil)
		}
		if len(tds) < 7 {
			return nil, malformed(tr.HTML(), "data row has fewer than 7 cells", nil)
		}

		district := strings.TrimSpace(tds[0].Text())
		districtID, err := parseDistrictID(tds[0])
		if err != nil {
			return nil, err
		}
		city := state.city
		if !state.provincialCity && !page.provincePage {
			// Region pages list one city per row.
			city = district
		}

		level, err := f.Region(filter.Path{state.province, city, district})
		if err != nil {
			return nil, err
		}
		switch level {
		case filter.DropDistrict:
			continue
		case filter.DropCity:
			if state.provincialCity || page.provincePage {
				return records, nil
			}
			continue
		case filter.DropProvince:
			return records, nil
		}

		record, err := decodeWeatherRow(tds)
		if err != nil {
			return nil, err
		}
		record.Province = state.province
		record.ProvinceURL = state.provinceURL
		record.City = city
		record.District = district
		record.DistrictID = districtID
		record.Date = date
		record.UpdateTime = page.updateTime
		records = append(records, record)
	}
	return records, nil
}

// apply updates the carried header from a row-spanning cell.
func (s *rowGroupState) apply(cell Element, page forecastPage) error {
	label := strings.TrimSpace(cell.Text())
	if page.provincePage {
		s.province = page.label
		s.provinceURL = page.labelURL
		s.city = label
	} else {
		anchors := cell.Find("a")
		if len(anchors) == 0 {
			return malformed(cell.HTML(), "province header without link", nil)
		}
		href, ok := anchors[0].Attr("href")
		if !ok {
			return malformed(cell.HTML(), "province header link without href", nil)
		}
		s.province = label
		s.provinceURL = href
		s.city = ""
	}
	s.provincialCity = entities.IsProvincialCity(s.province)
	if s.provincialCity {
		s.city = s.province
	}
	s.set = true
	return nil
}

func isColumnHeader(tds []Element) bool {
	day := strings.TrimSpace(tds[2].Text())
	night := strings.TrimSpace(tds[3].Text())
	if strings.HasSuffix(day, dayColumnSuffix) && strings.HasSuffix(night, nightColumnSuffix) {
		return true
	}
	return strings.TrimSpace(tds[0].Text()) == phenomenonHeader
}

func parseDistrictID(cell Element) (int, error) {
	anchors := cell.Find("a")
	if len(anchors) == 0 {
		return 0, malformed(cell.HTML(), "district cell without link", nil)
	}
	href, _ := anchors[0].Attr("href")
	m := districtIDRe.FindStringSubmatch(strings.TrimSpace(href))
	if m == nil {
		return 0, malformed(href, "district link without numeric id", nil)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, malformed(href, "district id out of range", err)
	}
	return id, nil
}

// decodeWeatherRow reads the day and night columns of a data row whose
// header cell has already been stripped.
func decodeWeatherRow(tds []Element) (entities.WeatherRecord, error) {
	var record entities.WeatherRecord

	if event := strings.TrimSpace(tds[1].Text()); event != missingPlaceholder {
		day, err := decodeWeatherInfo(event, tds[2])
		if err != nil {
			return record, err
		}
		tempMax, err := parseTemperature(tds[3])
		if err != nil {
			return record, err
		}
		record.DayWeather = &day
		record.TempMax = &tempMax
	}

	night, err := decodeWeatherInfo(strings.TrimSpace(tds[4].Text()), tds[5])
	if err != nil {
		return record, err
	}
	tempMin, err := parseTemperature(tds[6])
	if err != nil {
		return record, err
	}
	record.NightWeather = night
	record.TempMin = tempMin
	return record, nil
}

func decodeWeatherInfo(event string, windCell Element) (entities.WeatherInfo, error) {
	spans := windCell.Find("span")
	if len(spans) < 2 {
		return entities.WeatherInfo{}, malformed(windCell.HTML(), "wind cell needs direction and scale", nil)
	}
	return entities.WeatherInfo{
		Event:     event,
		WindDir:   strings.TrimSpace(spans[0].Text()),
		WindScale: strings.TrimSpace(spans[1].Text()),
	}, nil
}

func parseTemperature(cell Element) (int, error) {
	raw := strings.TrimSpace(cell.Text())
	t, err := strconv.Atoi(raw)
	if err != nil {
		return 0, malformed(cell.HTML(), "invalid temperature", err)
	}
	return t, nil
}

func first(el Element, selector string) (Element, error) {
	found := el.Find(selector)
	if len(found) == 0 {
		return nil, malformed(el.HTML(), fmt.Sprintf("%q not found", selector), nil)
	}
	return found[0], nil
}
