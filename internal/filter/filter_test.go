package filter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/weather-bot/internal/entities"
)

func TestEvaluateDate(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.January, Day: 3}
	other := civil.Date{Year: 2024, Month: time.January, Day: 4}

	assert.False(t, EvaluateDate(d, nil, nil))
	assert.True(t, EvaluateDate(d, nil, NewDateSet(d)))
	assert.False(t, EvaluateDate(other, nil, NewDateSet(d)))
	assert.True(t, EvaluateDate(d, NewDateSet(), nil), "empty include set rejects every date")
	assert.False(t, EvaluateDate(d, NewDateSet(d, other), nil))
	assert.True(t, EvaluateDate(d, NewDateSet(d), NewDateSet(d)), "exclusion wins over inclusion")
}

func record(province, city, district string, day int) entities.WeatherRecord {
	return entities.WeatherRecord{
		Province: province,
		City:     city,
		District: district,
		Date:     civil.Date{Year: 2024, Month: time.January, Day: day},
		NightWeather: entities.WeatherInfo{
			Event: "晴", WindDir: "北风", WindScale: "3级",
		},
	}
}

func TestFilterApply(t *testing.T) {
	records := []entities.WeatherRecord{
		record("河北", "石家庄", "正定", 3),
		record("河北", "保定", "保定", 3),
		record("山西", "太原", "太原", 3),
		record("河北", "石家庄", "正定", 4),
	}

	t.Run("zero filter keeps everything", func(t *testing.T) {
		got, err := Filter{}.Apply(records)
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})

	t.Run("region and date filters combine", func(t *testing.T) {
		f := Filter{
			Include:      Leaf("河北"),
			Exclude:      Branch(map[string]*Node{"河北": Leaf("保定")}),
			IncludeDates: NewDateSet(civil.Date{Year: 2024, Month: time.January, Day: 3}),
		}
		got, err := f.Apply(records)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "正定", got[0].District)
		assert.Equal(t, 3, got[0].Date.Day)

		again, err := f.Apply(got)
		require.NoError(t, err)
		assert.Equal(t, got, again, "filtering twice removes nothing more")
	})

	t.Run("unbounded exclude drops everything", func(t *testing.T) {
		got, err := Filter{Exclude: Unbounded()}.Apply(records)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid tree is reported before any record", func(t *testing.T) {
		_, err := Filter{Include: &Node{}}.Apply(nil)
		var specErr *FilterSpecError
		assert.ErrorAs(t, err, &specErr)
	})
}

func TestParse(t *testing.T) {
	doc := []byte(`
include:
  河北: [石家庄, 保定]
  北京: ~
exclude:
  河北:
    保定: [保定]
include_dates: [2024-01-03, "2024-01-04"]
exclude_dates: [2024-01-04]
`)
	f, err := Parse(doc)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	assert.Equal(t, KindBranch, f.Include.Kind())
	assert.Equal(t, []string{"北京", "河北"}, f.Include.Labels())
	assert.Len(t, f.IncludeDates, 2)
	assert.True(t, f.RejectsDate(civil.Date{Year: 2024, Month: time.January, Day: 4}))
	assert.False(t, f.RejectsDate(civil.Date{Year: 2024, Month: time.January, Day: 3}))

	level, err := f.Region(Path{"河北", "保定", "保定"})
	require.NoError(t, err)
	assert.Equal(t, DropDistrict, level)

	level, err = f.Region(Path{"北京", "北京", "海淀"})
	require.NoError(t, err)
	assert.Equal(t, Keep, level)

	level, err = f.Region(Path{"山西", "太原", "太原"})
	require.NoError(t, err)
	assert.Equal(t, DropProvince, level)
}

func TestParseDefaults(t *testing.T) {
	f, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Nil(t, f.Include)
	assert.Nil(t, f.Exclude)
	assert.Nil(t, f.IncludeDates)
	assert.NotNil(t, f.ExcludeDates)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("include:\n  河北: 3\n"))
	var specErr *FilterSpecError
	assert.ErrorAs(t, err, &specErr)

	_, err = Parse([]byte("exclude_dates: [not-a-date]\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("include: [河北]\n"), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, KindLeaf, f.Include.Kind())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
