package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(config.NLPConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Timeout:    2000,
		MaxRetries: retries,
	}, logger.NewNoOpLogger())
	return client, srv
}

func TestClassifyIntent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/parse-intent", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "P&L for Building 1", req["query"])

		json.NewEncoder(w).Encode(map[string]string{
			"intent":     "pl_calculation",
			"confidence": "high",
		})
	}, 0)

	res, err := client.ClassifyIntent(context.Background(), "P&L for Building 1", nil)
	require.NoError(t, err)
	assert.Equal(t, entities.IntentPLCalculation, res.Intent)
	assert.Equal(t, entities.ConfidenceHigh, res.Confidence)
}

func TestClassifyIntentCoercesUnknownLabel(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"intent":     "weather_forecast",
			"confidence": "high",
		})
	}, 0)

	res, err := client.ClassifyIntent(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, entities.IntentGeneralQuery, res.Intent)
	assert.Equal(t, entities.ConfidenceLow, res.Confidence)
}

func TestPostJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"intent": "general_query", "confidence": "low"})
	}, 3)

	_, err := client.ClassifyIntent(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPostJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}, 3)

	_, err := client.ClassifyIntent(context.Background(), "q", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNLServiceError))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPostJSONTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ClassifyIntent(ctx, "q", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNLServiceTimeout))
}

func TestExtractEntities(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/extract-entities", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entities": map[string]interface{}{
				"properties": []string{"Building 1"},
				"year":       "2024",
				"quarter":    []string{"Q1", "Q2"},
				"sentiment":  "curious",
			},
		})
	}, 0)

	bag, err := client.ExtractEntities(context.Background(), "compare Q1 and Q2 2024 for Building 1", entities.IntentTemporalComparison, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Building 1"}, bag.Properties)
	assert.Equal(t, "2024", bag.Year.One())
	assert.Equal(t, []string{"Q1", "Q2"}, bag.Quarter.Values)
	assert.True(t, bag.Quarter.Many())
	// Unknown keys survive the round trip.
	assert.Contains(t, bag.Extra, "sentiment")
	assert.Equal(t, "compare Q1 and Q2 2024 for Building 1", bag.RawQuery)
}

func TestExtractEntitiesSchemaViolationFallsBack(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entities": map[string]interface{}{
				"properties": "Building 1",
			},
		})
	}, 0)

	bag, err := client.ExtractEntities(context.Background(), "P&L for Building 1 in 2024", entities.IntentPLCalculation, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExtractionFailure))
	// The fallback still recovered the essentials.
	assert.Equal(t, []string{"Building 1"}, bag.Properties)
	assert.Equal(t, "2024", bag.Year.One())
}

func TestExtractEntitiesServiceDownFallsBack(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, 0)
	srv.Close()

	bag, err := client.ExtractEntities(context.Background(), "show Q3 for Building 7", entities.IntentPLCalculation, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"Building 7"}, bag.Properties)
	assert.Equal(t, "Q3", bag.Quarter.One())
}

func TestRewriteQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/rewrite-query", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"rewritten_query": "What is the P&L for Building 1 in 2025?",
		})
	}, 0)

	out, err := client.RewriteQuery(context.Background(), "And in 2025?", []entities.Turn{
		{Query: "What is the P&L for Building 1 in 2024?", Response: "..."},
	})
	require.NoError(t, err)
	assert.Equal(t, "What is the P&L for Building 1 in 2025?", out)
}

func TestRewriteQueryFailureReturnsOriginal(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, 0)
	srv.Close()

	out, err := client.RewriteQuery(context.Background(), "And in 2025?", nil)
	require.Error(t, err)
	assert.Equal(t, "And in 2025?", out)
}

func TestRewriteQueryEmptyResponseReturnsOriginal(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"rewritten_query": "  "})
	}, 0)

	out, err := client.RewriteQuery(context.Background(), "what about Q2", nil)
	require.NoError(t, err)
	assert.Equal(t, "what about Q2", out)
}

func TestSynthesize(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/synthesize", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"answer": "Building 1 earned $7,000."})
	}, 0)

	answer, err := client.Synthesize(context.Background(), "P&L?", &entities.QueryResult{
		Type: entities.ResultPL,
		PL:   &entities.PLResult{NetProfit: 7000},
	})
	require.NoError(t, err)
	assert.Equal(t, "Building 1 earned $7,000.", answer)
}
