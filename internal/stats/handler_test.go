package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatsRouter(agg *Aggregator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(agg)
	router := gin.New()
	router.GET("/api/stats", h.Get)
	router.GET("/api/top", h.Top)
	router.POST("/api/stats/reset", h.Reset)
	return router
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestStatsEndpoint(t *testing.T) {
	agg := New()
	router := newStatsRouter(agg)

	agg.RecordWords([]string{"I", "deposited", "money", "at", "bank"})
	agg.RecordLookup("bank", "I deposited money at bank")
	agg.RecordLookup("deposited", "")

	w := doRequest(router, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 5, snap.TotalWords)
	assert.Equal(t, 2, snap.UniqueWordsLookedUp)
	assert.Equal(t, 40.0, snap.LookupPercentage)
	require.Len(t, snap.RecentLookups, 2)
	assert.Equal(t, "deposited", snap.RecentLookups[0].Term, "newest first")
}

func TestTopEndpoint(t *testing.T) {
	agg := New()
	router := newStatsRouter(agg)

	for i := 0; i < 3; i++ {
		agg.RecordTap("bank")
	}
	agg.RecordTap("river")
	agg.RecordTap("river")
	agg.RecordTap("money")
	agg.RecordTap("loan")

	w := doRequest(router, http.MethodGet, "/api/top")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Top []TermCount `json:"top"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Top, 3)
	assert.Equal(t, TermCount{Term: "bank", Count: 3}, body.Top[0])
	assert.Equal(t, TermCount{Term: "river", Count: 2}, body.Top[1])
}

func TestResetEndpoint(t *testing.T) {
	agg := New()
	router := newStatsRouter(agg)

	agg.RecordWords([]string{"one", "two"})
	agg.RecordLookup("one", "")

	w := doRequest(router, http.MethodPost, "/api/stats/reset")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["message"])

	snap := agg.Snapshot()
	assert.Equal(t, 0, snap.TotalWords)
	assert.Equal(t, 0, snap.TotalLookups)
}
