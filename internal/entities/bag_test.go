package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBagUnmarshalScalarAndListShapes(t *testing.T) {
	var bag Bag
	require.NoError(t, json.Unmarshal([]byte(`{
		"properties": ["Building 1"],
		"year": "2024",
		"quarter": ["Q1", "Q2"],
		"month": null
	}`), &bag))

	assert.Equal(t, []string{"Building 1"}, bag.Properties)
	assert.Equal(t, "2024", bag.Year.One())
	assert.False(t, bag.Year.Many())
	assert.Equal(t, []string{"Q1", "Q2"}, bag.Quarter.Values)
	assert.True(t, bag.Quarter.Many())
	assert.True(t, bag.Month.Empty())
}

func TestBagUnmarshalFoldsSingularKeys(t *testing.T) {
	var bag Bag
	require.NoError(t, json.Unmarshal([]byte(`{
		"property": "Building 3",
		"tenant": "Tenant 9",
		"years": ["2024", "2025"]
	}`), &bag))

	assert.Equal(t, []string{"Building 3"}, bag.Properties)
	assert.Equal(t, []string{"Tenant 9"}, bag.Tenants)
	assert.Equal(t, []string{"2024", "2025"}, bag.Year.Values)
}

func TestBagUnmarshalNumericYear(t *testing.T) {
	var bag Bag
	require.NoError(t, json.Unmarshal([]byte(`{"year": 2024}`), &bag))
	assert.Equal(t, "2024", bag.Year.One())
}

func TestBagPreservesUnknownKeys(t *testing.T) {
	var bag Bag
	require.NoError(t, json.Unmarshal([]byte(`{
		"properties": ["Building 1"],
		"sentiment": "curious",
		"confidence_score": 0.93
	}`), &bag))

	require.Contains(t, bag.Extra, "sentiment")
	require.Contains(t, bag.Extra, "confidence_score")

	out, err := json.Marshal(bag)
	require.NoError(t, err)
	var round map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &round))
	assert.Contains(t, round, "sentiment")
	assert.Contains(t, round, "confidence_score")
}

func TestBagCloneIsDeep(t *testing.T) {
	orig := Bag{
		Properties: []string{"Building 1"},
		Year:       FlexList("2024", "2025"),
		SubQueries: []SubQuery{{RawQuery: "a", Entities: Bag{Properties: []string{"Building 2"}}}},
		Notes:      []string{"n1"},
	}

	clone := orig.Clone()
	clone.Properties[0] = "Building 99"
	clone.Year.Values[0] = "1999"
	clone.SubQueries[0].Entities.Properties[0] = "Building 98"
	clone.Notes[0] = "changed"

	assert.Equal(t, "Building 1", orig.Properties[0])
	assert.Equal(t, "2024", orig.Year.Values[0])
	assert.Equal(t, "Building 2", orig.SubQueries[0].Entities.Properties[0])
	assert.Equal(t, "n1", orig.Notes[0])
}

func TestBagClearTimeframes(t *testing.T) {
	bag := Bag{
		Properties: []string{"Building 1"},
		Year:       Flex("2024"),
		Quarter:    Flex("Q1"),
		Month:      Flex("January"),
		Periods:    []string{"2024-Q1"},
	}

	cleared := bag.ClearTimeframes()
	assert.False(t, cleared.HasTimeFilter())
	assert.Empty(t, cleared.Periods)
	assert.Equal(t, []string{"Building 1"}, cleared.Properties)
	// Original untouched.
	assert.True(t, bag.HasTimeFilter())
}

func TestStatusWorst(t *testing.T) {
	assert.Equal(t, StatusAmbiguous, StatusOK.Worst(StatusAmbiguous))
	assert.Equal(t, StatusAmbiguous, StatusAmbiguous.Worst(StatusMissing))
	assert.Equal(t, StatusMissing, StatusMissing.Worst(StatusOK))
	assert.Equal(t, StatusOK, StatusOK.Worst(StatusOK))
}

func TestParseIntent(t *testing.T) {
	intent, ok := ParseIntent("pl_calculation")
	assert.True(t, ok)
	assert.Equal(t, IntentPLCalculation, intent)

	_, ok = ParseIntent("weather_forecast")
	assert.False(t, ok)
}

func TestParseConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ParseConfidence("high"))
	assert.Equal(t, ConfidenceLow, ParseConfidence("very sure"))
}
