package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/weather-bot/internal/entities"
)

const alarmListScript = `var alarminfo={"count":"3","data":[` +
	`["北京市","110100-20230815143000-0301.html","116.40","39.90"],` +
	`["河北省石家庄市",  "130100-20230816080500-0702.html", 114.51, 38.04],` +
	`["黑龙江省漠河市","232701-20240105201000-9904.html","122.53","52.97"]` +
	`]};`

const alarmDetailScript = `var alarmInfo = {"head":"北京市气象台发布暴雪蓝色预警",` +
	`"ALERTID":"11000041600000_20230815143000","PROVINCE":"北京市","CITY":"",` +
	`"STATIONNAME":"北京市气象台","ISSUECONTENT":"预计未来12小时内有暴雪。",` +
	`"ISSUETIME":"2023-08-15 14:30:00","RELIEVETIME":"2023-08-16 14:30",` +
	`"TYPECODE":"03","LEVELCODE":"01","SIGNALTYPE":"暴雪","SIGNALLEVEL":"蓝色"};`

func TestParseShortURL(t *testing.T) {
	token, err := ParseShortURL("110100-20230815143000-0301")
	require.NoError(t, err)
	assert.Equal(t, 110100, token.LocationID)
	assert.True(t, token.Time.Equal(time.Date(2023, time.August, 15, 14, 30, 0, 0, entities.ChinaTimezone)))
	assert.Equal(t, "2023-08-15T14:30:00+08:00", token.Time.Format(time.RFC3339))
	assert.Equal(t, entities.AlarmBlizzard, token.Kind)
	assert.Equal(t, entities.AlarmBlue, token.Level)

	withSuffix, err := ParseShortURL("110100-20230815143000-0301.html")
	require.NoError(t, err)
	assert.Equal(t, token, withSuffix)
}

func TestParseShortURLMalformed(t *testing.T) {
	for _, shortURL := range []string{
		"",
		"110100-20230815143000",
		"beijing-20230815143000-0301",
		"110100-202308151430-0301",
		"110100-20231315143000-0301",
		"110100-20230815143000-301",
		"110100-20230815143000-4201",
		"110100-20230815143000-0309",
		"110100-20230815143000-0301-1",
	} {
		t.Run(shortURL, func(t *testing.T) {
			_, err := ParseShortURL(shortURL)
			var malformedErr *MalformedSourceError
			assert.ErrorAs(t, err, &malformedErr)
		})
	}
}

func TestAlarmKindSharedCodes(t *testing.T) {
	a, err := entities.AlarmKindFromCode(72)
	require.NoError(t, err)
	b, err := entities.AlarmKindFromCode(99)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, entities.AlarmLowTemperature, a)

	_, err = entities.AlarmKindFromCode(15)
	assert.Error(t, err)
}

func TestDecodeAlarmList(t *testing.T) {
	alarms, err := DecodeAlarmList(alarmListScript)
	require.NoError(t, err)
	require.Len(t, alarms, 3)

	assert.Equal(t, entities.Alarm{
		Location:   "北京市",
		LngE:       116.40,
		LatN:       39.90,
		LocationID: 110100,
		Kind:       entities.AlarmBlizzard,
		Level:      entities.AlarmBlue,
		Time:       time.Date(2023, time.August, 15, 14, 30, 0, 0, entities.ChinaTimezone),
		ShortURL:   "110100-20230815143000-0301.html",
	}, alarms[0])

	assert.Equal(t, 114.51, alarms[1].LngE, "numeric coordinates are accepted")
	assert.Equal(t, entities.AlarmHeatWave, alarms[1].Kind)
	assert.Equal(t, entities.AlarmYellow, alarms[1].Level)

	assert.Equal(t, entities.AlarmLowTemperature, alarms[2].Kind)
	assert.Equal(t, entities.AlarmRed, alarms[2].Level)
}

func TestDecodeAlarmListEmpty(t *testing.T) {
	alarms, err := DecodeAlarmList(`var alarminfo={"count":"0","data":[]};`)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestDecodeAlarmListMalformed(t *testing.T) {
	tests := map[string]string{
		"no assignment":     `{"data":[]}`,
		"no data":           `var alarminfo={"count":"0"};`,
		"short row":         `var alarminfo={"data":[["北京市","110100-20230815143000-0301.html"]]};`,
		"bad coordinate":    `var alarminfo={"data":[["北京市","110100-20230815143000-0301.html","east","39.9"]]};`,
		"bad token":         `var alarminfo={"data":[["北京市","110100-0301.html","116.4","39.9"]]};`,
		"truncated literal": `var alarminfo={"data":[["北京市"`,
	}
	for name, script := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAlarmList(script)
			var malformedErr *MalformedSourceError
			assert.ErrorAs(t, err, &malformedErr)
		})
	}
}

func TestDecodeAlarmDetail(t *testing.T) {
	detail, err := DecodeAlarmDetail(alarmDetailScript)
	require.NoError(t, err)

	assert.Equal(t, "北京市气象台发布暴雪蓝色预警", detail.Title)
	assert.Equal(t, "11000041600000_20230815143000", detail.AlarmID)
	assert.Equal(t, "北京市", detail.ProvinceName)
	assert.Equal(t, "", detail.CityName)
	assert.Equal(t, "预计未来12小时内有暴雪。", detail.Content)
	assert.Equal(t, "2023-08-15T14:30:00+08:00", detail.Time.Format(time.RFC3339))
	assert.Equal(t, "2023-08-16T14:30:00+08:00", detail.RelieveTime.Format(time.RFC3339))
	assert.Equal(t, entities.AlarmBlizzard, detail.Kind)
	assert.Equal(t, entities.AlarmBlue, detail.Level)
	assert.Equal(t, "北京市气象台", detail.RawInfo["STATIONNAME"], "unknown fields are preserved")
	assert.Len(t, detail.RawInfo, 12)
}

func TestDecodeAlarmDetailMalformed(t *testing.T) {
	tests := map[string]string{
		"list instead of mapping": `var alarmInfo = [];`,
		"missing field":           `var alarmInfo = {"head":"x"};`,
		"bad issue time": `var alarmInfo = {"head":"","ALERTID":"","PROVINCE":"","CITY":"","ISSUECONTENT":"",` +
			`"ISSUETIME":"15/08/2023","RELIEVETIME":"2023-08-16 14:30","TYPECODE":"03","LEVELCODE":"01"};`,
		"unknown level": `var alarmInfo = {"head":"","ALERTID":"","PROVINCE":"","CITY":"","ISSUECONTENT":"",` +
			`"ISSUETIME":"2023-08-15 14:30:00","RELIEVETIME":"2023-08-16 14:30","TYPECODE":"03","LEVELCODE":"07"};`,
	}
	for name, script := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAlarmDetail(script)
			var malformedErr *MalformedSourceError
			assert.ErrorAs(t, err, &malformedErr)
		})
	}
}

func TestParseJSAssignment(t *testing.T) {
	v, err := ParseJSAssignment("  var a = [1, 2, 3] ;\n")
	require.NoError(t, err)
	assert.Len(t, v.Array(), 3)

	v, err = ParseJSAssignment(`x={"k":"a=b"}`)
	require.NoError(t, err)
	assert.Equal(t, "a=b", v.Get("k").String())

	for _, text := range []string{"", "var a;", "var a = ;", "var a = {'k': 1};"} {
		_, err := ParseJSAssignment(text)
		var malformedErr *MalformedSourceError
		assert.ErrorAs(t, err, &malformedErr, text)
	}
}

func TestMalformedSourceErrorTruncatesFragment(t *testing.T) {
	long := make([]rune, 500)
	for i := range long {
		long[i] = '雪'
	}
	err := malformed(string(long), "too long", nil)

	var malformedErr *MalformedSourceError
	require.ErrorAs(t, err, &malformedErr)
	assert.Len(t, []rune(malformedErr.Fragment), maxFragment+1)
	assert.Contains(t, err.Error(), "too long")
}
