package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandradio/radio-cache/internal/resource"
)

func TestExtractStationsSingleValid(t *testing.T) {
	body := []byte(`{"resultData":{"data":[{"id":42,"name":"Band News FM","dial":"96.9","city":"São Paulo","state":"SP","logo":"https://img.example.com/42.png"}]}}`)

	result := ExtractStations(body)

	require.True(t, result.OK(), "outcome=%s err=%v", result.Outcome, result.Err)
	require.Len(t, result.Value, 1)
	assert.Equal(t, Station{
		ID:    42,
		Name:  "Band News FM",
		Dial:  "96.9",
		City:  "São Paulo",
		State: "SP",
		Logo:  "https://img.example.com/42.png",
	}, result.Value[0])
	assert.Zero(t, result.Dropped)
}

func TestExtractStationsMissingData(t *testing.T) {
	result := ExtractStations([]byte(`{"resultData":{}}`))

	assert.Equal(t, resource.OutcomeEmpty, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrMissingData)
	assert.Nil(t, result.Value)
}

func TestExtractStationsMissingResultData(t *testing.T) {
	result := ExtractStations([]byte(`{"status":"ok"}`))

	assert.Equal(t, resource.OutcomeEmpty, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrMissingResultData)
}

func TestExtractStationsMistypedData(t *testing.T) {
	cases := map[string]string{
		"data is object":         `{"resultData":{"data":{"id":1}}}`,
		"data has a non-object":  `{"resultData":{"data":[{"id":1,"name":"A"},7]}}`,
		"data is null":           `{"resultData":{"data":null}}`,
		"resultData is an array": `{"resultData":[{"id":1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			result := ExtractStations([]byte(body))
			assert.Equal(t, resource.OutcomeEmpty, result.Outcome)
		})
	}
}

func TestExtractStationsDropsInvalidElements(t *testing.T) {
	body := []byte(`{"resultData":{"data":[{"id":1,"name":"A"},{"name":"no id"},{"id":"3","name":"string id"},{"id":4,"name":"  "},{"id":5,"name":"E"}]}}`)

	result := ExtractStations(body)

	require.True(t, result.OK())
	require.Len(t, result.Value, 2)
	assert.Equal(t, 1, result.Value[0].ID)
	assert.Equal(t, 5, result.Value[1].ID)
	assert.Equal(t, 3, result.Dropped)
}

func TestExtractStationsEmptyArray(t *testing.T) {
	result := ExtractStations([]byte(`{"resultData":{"data":[]}}`))

	require.True(t, result.OK())
	assert.Empty(t, result.Value)
}

func TestExtractStationsNonObjectJSON(t *testing.T) {
	for _, body := range []string{`[1,2,3]`, `"resultData"`, `null`, `{"resultData":`} {
		result := ExtractStations([]byte(body))
		assert.Equal(t, resource.OutcomeParseError, result.Outcome, "body %s", body)
		assert.Error(t, result.Err)
	}
}

func TestParseStreamValid(t *testing.T) {
	body := []byte(`{"resultData":{"id":42,"name":"Band News FM","streamUrl":"https://stream.example.com/42.aac","program":"Jornal","bitrate":128}}`)

	result := ParseStream(body)

	require.True(t, result.OK())
	assert.Equal(t, Stream{
		ID:        42,
		Name:      "Band News FM",
		StreamURL: "https://stream.example.com/42.aac",
		Program:   "Jornal",
		Bitrate:   128,
	}, result.Value)
}

func TestParseStreamNonJSON(t *testing.T) {
	var result resource.Result[Stream]
	require.NotPanics(t, func() {
		result = ParseStream([]byte("<html>502 Bad Gateway</html>"))
	})

	assert.Equal(t, resource.OutcomeParseError, result.Outcome)
	assert.False(t, result.OK())
}

func TestParseStreamMissingKeys(t *testing.T) {
	missing := ParseStream([]byte(`{"data":{}}`))
	assert.Equal(t, resource.OutcomeEmpty, missing.Outcome)
	assert.ErrorIs(t, missing.Err, ErrMissingResultData)

	noURL := ParseStream([]byte(`{"resultData":{"id":1,"name":"silent"}}`))
	assert.Equal(t, resource.OutcomeEmpty, noURL.Outcome)
	assert.ErrorIs(t, noURL.Err, ErrInvalidStream)
}

func TestKindsRegistered(t *testing.T) {
	list, ok := resource.Resolve(KindList)
	require.True(t, ok)
	assert.Equal(t, resource.PolicyRefresh, list.DefaultPolicy)
	assert.False(t, list.RequiresID)

	stream, ok := resource.Resolve(KindStream)
	require.True(t, ok)
	assert.Equal(t, resource.PolicyCacheFirst, stream.DefaultPolicy)
	assert.True(t, stream.RequiresID)
}
