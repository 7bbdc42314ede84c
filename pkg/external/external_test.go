package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ae-risk-core/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// countServer fakes the openFDA count endpoint: it maps search expressions
// to totals and records how many requests it served.
type countServer struct {
	totals map[string]int64 // key "" is the database-wide count
	hits   int
	status int
}

func (s *countServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.hits++
		if s.status != 0 {
			w.WriteHeader(s.status)
			return
		}
		search := r.URL.Query().Get("search")
		total, ok := s.totals[search]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"meta":{"results":{"total":%d}}}`, total)
	}
}

func testConfig(baseURL string) domain.FAERSConfig {
	return domain.FAERSConfig{
		BaseURL:   baseURL,
		Timeout:   2 * time.Second,
		RateLimit: 1000,
		Burst:     1000,
	}
}

func scenarioTotals(product, event string) map[string]int64 {
	productTerm := fmt.Sprintf(`patient.drug.medicinalproduct:%q`, product)
	eventTerm := fmt.Sprintf(`patient.reaction.reactionmeddrapt:%q`, event)
	return map[string]int64{
		productTerm + " AND " + eventTerm: 5,
		productTerm:                       100,
		eventTerm:                         55,
		"":                                10000,
	}
}

func TestFetchCountsAssemblesTable(t *testing.T) {
	srv := &countServer{totals: scenarioTotals("drug-x", "myocarditis")}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	client := NewOpenFDAClient(testConfig(ts.URL))
	counts, err := client.FetchCounts(context.Background(), "drug-x", "myocarditis")
	require.NoError(t, err)

	assert.Equal(t, int64(5), counts.A)
	assert.Equal(t, int64(95), counts.B)
	assert.Equal(t, int64(50), counts.C)
	assert.Equal(t, int64(9850), counts.D)
	assert.Equal(t, int64(10000), counts.Total)
	assert.Equal(t, 4, srv.hits)
}

func TestFetchCountsZeroMatchesIs404(t *testing.T) {
	totals := scenarioTotals("drug-x", "myocarditis")
	// Drop the pair count: openFDA answers 404 for empty result sets.
	for k := range totals {
		if strings.Contains(k, " AND ") {
			delete(totals, k)
		}
	}
	srv := &countServer{totals: totals}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	client := NewOpenFDAClient(testConfig(ts.URL))
	counts, err := client.FetchCounts(context.Background(), "drug-x", "myocarditis")
	require.NoError(t, err)

	assert.Equal(t, int64(0), counts.A)
	assert.Equal(t, int64(100), counts.B)
}

func TestFetchCountsValidation(t *testing.T) {
	client := NewOpenFDAClient(testConfig("http://unused"))

	_, err := client.FetchCounts(context.Background(), "", "myocarditis")
	assert.Error(t, err)

	_, err = client.FetchCounts(context.Background(), "drug-x", "")
	assert.Error(t, err)
}

func TestFetchCountsServerError(t *testing.T) {
	srv := &countServer{status: http.StatusInternalServerError}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	client := NewOpenFDAClient(testConfig(ts.URL))
	_, err := client.FetchCounts(context.Background(), "drug-x", "myocarditis")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestResilientSourceUsesLocalCache(t *testing.T) {
	srv := &countServer{totals: scenarioTotals("drug-x", "myocarditis")}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	source := NewResilientCountSource(
		NewOpenFDAClient(testConfig(ts.URL)), nil, domain.CacheConfig{}, testLogger())

	first, err := source.ReportCounts(context.Background(), "drug-x", "myocarditis")
	require.NoError(t, err)
	require.Equal(t, 4, srv.hits)

	second, err := source.ReportCounts(context.Background(), "drug-x", "myocarditis")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 4, srv.hits) // served from the LRU, no new requests
}

func TestResilientSourceWrapsFailures(t *testing.T) {
	srv := &countServer{status: http.StatusInternalServerError}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	source := NewResilientCountSource(
		NewOpenFDAClient(testConfig(ts.URL)), nil, domain.CacheConfig{}, testLogger())

	_, err := source.ReportCounts(context.Background(), "drug-x", "myocarditis")
	require.Error(t, err)

	var collabErr *domain.CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, "drug-x", collabErr.Product)
	assert.Equal(t, "myocarditis", collabErr.Event)
	assert.Equal(t, collaboratorName, collabErr.Source)
}

func TestResilientSourceTripsBreaker(t *testing.T) {
	srv := &countServer{status: http.StatusInternalServerError}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	source := NewResilientCountSource(
		NewOpenFDAClient(testConfig(ts.URL)), nil, domain.CacheConfig{}, testLogger())

	// Three consecutive failures trip the breaker.
	for i := 0; i < 3; i++ {
		_, err := source.ReportCounts(context.Background(), "drug-x", fmt.Sprintf("event-%d", i))
		require.Error(t, err)
	}
	require.NotEqual(t, "closed", source.BreakerState().String())

	before := srv.hits
	_, err := source.ReportCounts(context.Background(), "drug-x", "event-next")
	require.Error(t, err)
	assert.Equal(t, before, srv.hits) // breaker open, no request issued
	assert.Contains(t, err.Error(), "circuit breaker open")
}
