package integration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/abelzeko/weather-bot/internal/entities"
)

const (
	shortURLSuffix  = ".html"
	tokenTimeLayout = "20060102150405"
)

// detailTimeLayouts are the zone-less ISO-like forms used by detail payloads
var detailTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// AlarmToken is the information encoded in an alarm short URL
type AlarmToken struct {
	LocationID int
	Time       time.Time
	Kind       entities.AlarmKind
	Level      entities.AlarmLevel
}

// ParseShortURL decodes a `<location id>-<YYYYMMDDHHMMSS>-<kind><level>` token,
// optionally followed by ".html"
func ParseShortURL(shortURL string) (AlarmToken, error) {
	var token AlarmToken
	parts := strings.Split(strings.TrimSuffix(shortURL, shortURLSuffix), "-")
	if len(parts) != 3 {
		return token, malformed(shortURL, "short url is not a location-time-code triple", nil)
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return token, malformed(shortURL, "invalid location id", err)
	}

	if len(parts[1]) != len(tokenTimeLayout) {
		return token, malformed(shortURL, "timestamp must have 14 digits", nil)
	}
	issued, err := time.ParseInLocation(tokenTimeLayout, parts[1], entities.ChinaTimezone)
	if err != nil {
		return token, malformed(shortURL, "invalid timestamp", err)
	}

	codes := parts[2]
	if len(codes) != 4 {
		return token, malformed(shortURL, "kind and level code must have 4 digits", nil)
	}
	kind, level, err := parseAlarmCodes(codes[:2], codes[2:])
	if err != nil {
		return token, malformed(shortURL, "invalid alarm code", err)
	}

	token.LocationID = id
	token.Time = issued
	token.Kind = kind
	token.Level = level
	return token, nil
}

func parseAlarmCodes(kindCode, levelCode string) (entities.AlarmKind, entities.AlarmLevel, error) {
	k, err := strconv.Atoi(strings.TrimSpace(kindCode))
	if err != nil {
		return "", 0, fmt.Errorf("kind code %q: %w", kindCode, err)
	}
	l, err := strconv.Atoi(strings.TrimSpace(levelCode))
	if err != nil {
		return "", 0, fmt.Errorf("level code %q: %w", levelCode, err)
	}
	kind, err := entities.AlarmKindFromCode(k)
	if err != nil {
		return "", 0, err
	}
	level, err := entities.AlarmLevelFromCode(l)
	if err != nil {
		return "", 0, err
	}
	return kind, level, nil
}

// DecodeAlarmList decodes the active alarm list script. Each entry of its
// `data` array is `[location, short_url, lng_E, lat_N]`.
func DecodeAlarmList(text string) ([]entities.Alarm, error) {
	payload, err := ParseJSAssignment(text)
	if err != nil {
		return nil, err
	}
	data := payload.Get("data")
	if !data.IsArray() {
		return nil, malformed(payload.Raw, "alarm list has no data array", nil)
	}

	rows := data.Array()
	alarms := make([]entities.Alarm, 0, len(rows))
	for _, row := range rows {
		cols := row.Array()
		if !row.IsArray() || len(cols) != 4 {
			return nil, malformed(row.Raw, "alarm row must have 4 columns", nil)
		}
		lng, err := parseCoordinate(cols[2])
		if err != nil {
			return nil, err
		}
		lat, err := parseCoordinate(cols[3])
		if err != nil {
			return nil, err
		}
		shortURL := cols[1].String()
		token, err := ParseShortURL(shortURL)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, entities.Alarm{
			Location:   cols[0].String(),
			LngE:       lng,
			LatN:       lat,
			LocationID: token.LocationID,
			Kind:       token.Kind,
			Level:      token.Level,
			Time:       token.Time,
			ShortURL:   shortURL,
		})
	}
	return alarms, nil
}

func parseCoordinate(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), nil
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, malformed(r.Raw, "invalid coordinate", err)
		}
		return v, nil
	default:
		return 0, malformed(r.Raw, "coordinate is not a number", nil)
	}
}

// DecodeAlarmDetail decodes the detail script of a single alarm
func DecodeAlarmDetail(text string) (entities.AlarmDetail, error) {
	var detail entities.AlarmDetail
	payload, err := ParseJSAssignment(text)
	if err != nil {
		return detail, err
	}
	if !payload.IsObject() {
		return detail, malformed(payload.Raw, "alarm detail is not a mapping", nil)
	}

	raw := make(map[string]string)
	payload.ForEach(func(key, value gjson.Result) bool {
		raw[key.String()] = value.String()
		return true
	})

	var missing error
	get := func(key string) string {
		v, ok := raw[key]
		if !ok && missing == nil {
			missing = malformed(payload.Raw, fmt.Sprintf("alarm detail has no %s", key), nil)
		}
		return v
	}
	detail.Title = get("head")
	detail.AlarmID = get("ALERTID")
	detail.ProvinceName = get("PROVINCE")
	detail.CityName = get("CITY")
	detail.Content = get("ISSUECONTENT")
	issued := get("ISSUETIME")
	relieved := get("RELIEVETIME")
	kindCode := get("TYPECODE")
	levelCode := get("LEVELCODE")
	if missing != nil {
		return entities.AlarmDetail{}, missing
	}

	if detail.Time, err = parseLocalTimestamp(issued); err != nil {
		return entities.AlarmDetail{}, err
	}
	if detail.RelieveTime, err = parseLocalTimestamp(relieved); err != nil {
		return entities.AlarmDetail{}, err
	}
	if detail.Kind, detail.Level, err = parseAlarmCodes(kindCode, levelCode); err != nil {
		return entities.AlarmDetail{}, malformed(payload.Raw, "invalid alarm code", err)
	}
	detail.RawInfo = raw
	return detail, nil
}

// parseLocalTimestamp reads a zone-less timestamp as +08:00 wall-clock time
func parseLocalTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range detailTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, entities.ChinaTimezone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, malformed(s, "invalid timestamp", nil)
}
