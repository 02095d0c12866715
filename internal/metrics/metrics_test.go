package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCount(t *testing.T) {
	c := New()
	c.TurnCompleted("model")
	c.TurnCompleted("model")
	c.TurnCompleted("tips")
	c.FieldExtracted("region")
	c.PersistenceFault("append_message")
	c.CompletionObserved(120*time.Millisecond, nil)
	c.CompletionObserved(time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.turns.WithLabelValues("model")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.turns.WithLabelValues("tips")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.extractedFields.WithLabelValues("region")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.persistenceFaults.WithLabelValues("append_message")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.completionLatency))
}

func TestHandlerServesRegistry(t *testing.T) {
	c := New()
	c.HTTPRequest(http.MethodPost, "/chat", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `pensionguru_http_requests_total{method="POST",route="/chat",status="200"} 1`))
}

func TestNilCollectorsAreSafe(t *testing.T) {
	var c *Collectors
	c.TurnCompleted("model")
	c.CompletionObserved(time.Second, nil)
	c.FieldExtracted("age")
	c.PersistenceFault("set_field")
	c.HTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	assert.Nil(t, c.Registry())
}
