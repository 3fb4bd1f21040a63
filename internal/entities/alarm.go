package entities

import (
	"fmt"
	"time"
)

// AlarmKind is the category of a weather alarm. Several raw portal codes may
// share one category.
type AlarmKind string

const (
	AlarmTyphoon             AlarmKind = "台风"
	AlarmRainstorm           AlarmKind = "暴雨"
	AlarmBlizzard            AlarmKind = "暴雪"
	AlarmColdWave            AlarmKind = "寒潮"
	AlarmGale                AlarmKind = "大风"
	AlarmSandstorm           AlarmKind = "沙尘暴"
	AlarmHeatWave            AlarmKind = "高温"
	AlarmDrought             AlarmKind = "干旱"
	AlarmLightning           AlarmKind = "雷电"
	AlarmHail                AlarmKind = "冰雹"
	AlarmFrost               AlarmKind = "霜冻"
	AlarmFog                 AlarmKind = "大雾"
	AlarmHaze                AlarmKind = "霾"
	AlarmRoadIcing           AlarmKind = "道路结冰"
	AlarmSeaFog              AlarmKind = "海上大雾"
	AlarmThunderGust         AlarmKind = "雷暴大风"
	AlarmPersistentLowTemp   AlarmKind = "持续低温"
	AlarmDenseDust           AlarmKind = "浓浮尘"
	AlarmTornado             AlarmKind = "龙卷风"
	AlarmLowTempFreeze       AlarmKind = "低温冻害"
	AlarmSeaGale             AlarmKind = "海上大风"
	AlarmLowTempSleet        AlarmKind = "低温雨雪冰冻"
	AlarmSevereConvection    AlarmKind = "强对流"
	AlarmOzone               AlarmKind = "臭氧"
	AlarmHeavySnow           AlarmKind = "大雪"
	AlarmHeavyRain           AlarmKind = "强降雨"
	AlarmSharpCooling        AlarmKind = "强降温"
	AlarmSnowDisaster        AlarmKind = "雪灾"
	AlarmForestGrasslandFire AlarmKind = "森林草原火险"
	AlarmThunderstorm        AlarmKind = "雷暴"
	AlarmSevereCold          AlarmKind = "严寒"
	AlarmDust                AlarmKind = "沙尘"
	AlarmSeaThunderstormGale AlarmKind = "海上雷雨大风"
	AlarmSeaLightning        AlarmKind = "海上雷电"
	AlarmSeaTyphoon          AlarmKind = "海上台风"
	AlarmLowTemperature      AlarmKind = "低温"
	AlarmCold                AlarmKind = "寒冷"
	AlarmGreyHaze            AlarmKind = "灰霾"
	AlarmThunderstormGale    AlarmKind = "雷雨大风"
	AlarmForestFire          AlarmKind = "森林火险"
	AlarmCooling             AlarmKind = "降温"
	AlarmRoadIceSnow         AlarmKind = "道路冰雪"
	AlarmDryHotWind          AlarmKind = "干热风"
	AlarmHeavyAirPollution   AlarmKind = "空气重污染"
)

var alarmKindCodes = map[int]AlarmKind{
	1: AlarmTyphoon, 2: AlarmRainstorm, 3: AlarmBlizzard, 4: AlarmColdWave,
	5: AlarmGale, 6: AlarmSandstorm, 7: AlarmHeatWave, 8: AlarmDrought,
	9: AlarmLightning, 10: AlarmHail, 11: AlarmFrost, 12: AlarmFog,
	13: AlarmHaze, 14: AlarmRoadIcing,
	51: AlarmSeaFog, 52: AlarmThunderGust, 53: AlarmPersistentLowTemp, 54: AlarmDenseDust,
	55: AlarmTornado, 56: AlarmLowTempFreeze, 57: AlarmSeaGale, 58: AlarmLowTempSleet,
	59: AlarmSevereConvection, 60: AlarmOzone, 61: AlarmHeavySnow, 62: AlarmHeavyRain,
	63: AlarmSharpCooling, 64: AlarmSnowDisaster, 65: AlarmForestGrasslandFire, 66: AlarmThunderstorm,
	67: AlarmSevereCold, 68: AlarmDust, 69: AlarmSeaThunderstormGale, 70: AlarmSeaLightning,
	71: AlarmSeaTyphoon, 72: AlarmLowTemperature, 99: AlarmLowTemperature,
	91: AlarmCold, 92: AlarmGreyHaze, 93: AlarmThunderstormGale, 94: AlarmForestFire,
	95: AlarmCooling, 96: AlarmRoadIceSnow, 97: AlarmDryHotWind, 98: AlarmHeavyAirPollution,
}

// AlarmKindFromCode maps a raw portal code to its category
func AlarmKindFromCode(code int) (AlarmKind, error) {
	kind, ok := alarmKindCodes[code]
	if !ok {
		return "", fmt.Errorf("unknown alarm kind code %d", code)
	}
	return kind, nil
}

// AlarmLevel is the severity of a weather alarm
type AlarmLevel int

const (
	AlarmBlue   AlarmLevel = 1
	AlarmYellow AlarmLevel = 2
	AlarmOrange AlarmLevel = 3
	AlarmRed    AlarmLevel = 4
	AlarmWhite  AlarmLevel = 5
)

var alarmLevelNames = map[AlarmLevel]string{
	AlarmBlue:   "蓝色",
	AlarmYellow: "黄色",
	AlarmOrange: "橙色",
	AlarmRed:    "红色",
	AlarmWhite:  "白色",
}

// AlarmLevelFromCode maps a raw portal code to a severity
func AlarmLevelFromCode(code int) (AlarmLevel, error) {
	level := AlarmLevel(code)
	if _, ok := alarmLevelNames[level]; !ok {
		return 0, fmt.Errorf("unknown alarm level code %d", code)
	}
	return level, nil
}

func (l AlarmLevel) String() string {
	if name, ok := alarmLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("AlarmLevel(%d)", int(l))
}

// Alarm is one entry of the active alarm list
type Alarm struct {
	Location   string
	LngE       float64 // Longitude, degrees east
	LatN       float64 // Latitude, degrees north
	LocationID int
	Kind       AlarmKind
	Level      AlarmLevel
	Time       time.Time
	ShortURL   string // Token encoding location id, issue time, kind and level
}

// AlarmDetail is the full text of a single alarm
type AlarmDetail struct {
	Title        string
	AlarmID      string
	ProvinceName string
	CityName     string
	Time         time.Time
	Content      string
	RelieveTime  time.Time
	Kind         AlarmKind
	Level        AlarmLevel
	RawInfo      map[string]string // Every field of the source payload
}
