package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocationIDs(t *testing.T) *LocationIDs {
	t.Helper()
	tables := map[string]string{
		"/data/city3jdata/china.html":           `{"10101":"北京","10109":"河北"}`,
		"/data/city3jdata/provshi/10109.html":   `{"01":"石家庄","02":"保定"}`,
		"/data/city3jdata/station/1010901.html": `{"01":"石家庄","15":"辛集"}`,
		"/data/city3jdata/station/1010902.html": `["保定"]`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := tables[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	fetcher, _ := newTestFetcher(0)
	return NewLocationIDs(server.URL, fetcher)
}

func TestLocationIDsTables(t *testing.T) {
	ids := newTestLocationIDs(t)
	ctx := context.Background()

	provinces, err := ids.ProvincesIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"北京": 10101, "河北": 10109}, provinces)

	cities, err := ids.CitiesIDs(ctx, 10109)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"石家庄": 1010901, "保定": 1010902}, cities)

	districts, err := ids.DistrictsIDs(ctx, 1010901)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"石家庄": 101090101, "辛集": 101090115}, districts)

	missing, err := ids.CitiesIDs(ctx, 10101)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = ids.DistrictsIDs(ctx, 1010902)
	var malformedErr *MalformedSourceError
	assert.ErrorAs(t, err, &malformedErr)
}

func TestIDFromName(t *testing.T) {
	ids := newTestLocationIDs(t)
	ctx := context.Background()

	tests := []struct {
		province, city, district string
		want                     int
	}{
		{"河北", "", "", 10109},
		{"河北", "石家庄", "", 1010901},
		{"河北", "石家庄", "辛集", 101090115},
		{"河北", "石家庄", "正定", 0},
		{"河北", "唐山", "", 0},
		{"湖南", "", "", 0},
		{"北京", "北京", "", 0},
	}
	for _, tt := range tests {
		got, err := ids.IDFromName(ctx, tt.province, tt.city, tt.district)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s/%s", tt.province, tt.city, tt.district)
	}
}

func TestNameFromID(t *testing.T) {
	ids := newTestLocationIDs(t)
	ctx := context.Background()

	tests := []struct {
		id   int
		want []string
	}{
		{10109, []string{"河北"}},
		{1010902, []string{"河北", "保定"}},
		{101090115, []string{"河北", "石家庄", "辛集"}},
		{101090199, nil},
		{10199, nil},
		{123, nil},
	}
	for _, tt := range tests {
		got, err := ids.NameFromID(ctx, tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%d", tt.id)
	}
}

func TestHaveCommonArea(t *testing.T) {
	assert.True(t, HaveCommonArea(10109, 101090115))
	assert.True(t, HaveCommonArea(101090115, 1010901))
	assert.True(t, HaveCommonArea(10109, 10109))
	assert.False(t, HaveCommonArea(10101, 10109))
	assert.False(t, HaveCommonArea(1010901, 1010902))
}
