package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux.Handle("GET /metrics", Handler())
	h := InstrumentHandler(mux)

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /things/{id}", "418"))
	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/"+id, nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /things/{id}", "418")))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Positive(t, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jsonstore_http_request_duration_seconds")
	assert.Zero(t, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /metrics", "200")))
}

func TestRecorders(t *testing.T) {
	RecordStorageOp("get", "ok", time.Now())
	RecordDocumentWrite("plain", 512)
	RecordEncodingMigration("compressed")
	RecordScanSkip()
	RecordPatch("ok")

	assert.GreaterOrEqual(t, testutil.ToFloat64(storageOps.WithLabelValues("get", "ok")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(encodingMigrations.WithLabelValues("compressed")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(scanSkipped), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(patchResults.WithLabelValues("ok")), 1.0)

	n, err := testutil.GatherAndCount(Registry, "jsonstore_storage_document_bytes")
	require.NoError(t, err)
	assert.Positive(t, n)
}
