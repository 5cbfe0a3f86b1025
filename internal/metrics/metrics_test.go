package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationsAreExported(t *testing.T) {
	m := New()
	m.ObserveIngest("success", 1.5)
	m.ObserveIngest("extraction_error", 0.1)
	m.ObserveAnswer("success", 3)
	m.RecordHTTPRequest("POST", "/chat", "200", 250*time.Millisecond)
	docs := 7
	m.RegisterDocumentCount(func() int { return docs })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `paperchat_ingest_total{outcome="success"} 1`)
	assert.Contains(t, text, `paperchat_ingest_total{outcome="extraction_error"} 1`)
	assert.Contains(t, text, `paperchat_answer_total{outcome="success"} 1`)
	assert.Contains(t, text, `paperchat_http_requests_total{method="POST",route="/chat",status="200"} 1`)
	assert.Contains(t, text, "paperchat_documents 7")
}

func TestInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.ObserveIngest("success", 1)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "paperchat_ingest_total" {
			assert.Empty(t, f.GetMetric())
		}
	}
}
