package entities

// provincialCities are the regions where the province and city levels collapse into one name
var provincialCities = map[string]struct{}{
	"香港": {}, "澳门": {}, "重庆": {}, "北京": {}, "天津": {}, "上海": {},
}

var provinces = map[string]struct{}{
	"北京": {}, "安徽": {}, "重庆": {}, "福建": {}, "甘肃": {}, "广东": {}, "广西": {},
	"贵州": {}, "海南": {}, "河北": {}, "河南": {}, "湖北": {}, "湖南": {}, "黑龙江": {},
	"吉林": {}, "江苏": {}, "江西": {}, "辽宁": {}, "内蒙古": {}, "宁夏": {}, "青海": {},
	"山东": {}, "陕西": {}, "山西": {}, "上海": {}, "四川": {}, "天津": {}, "西藏": {},
	"新疆": {}, "云南": {}, "浙江": {}, "香港": {}, "澳门": {}, "台湾": {},
}

// IsProvincialCity reports whether name is a direct-administered or special region
func IsProvincialCity(name string) bool {
	_, ok := provincialCities[name]
	return ok
}

// IsProvince reports whether name is a province-level label
func IsProvince(name string) bool {
	_, ok := provinces[name]
	return ok
}
