package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNopRegistryMethodsDoNotPanic(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveChunkWrite("hot", 1024, time.Millisecond, true)
		r.ObserveDownload("cold", 200, 2048, time.Millisecond)
		r.ObserveStorageOp("writeChunk", "hot", true)
		r.ObserveMigration("hot_to_cold")
		r.ObserveRateLimitReject("upload")
		r.SetQuotaUsage("free", 100)
		r.SetActiveSessions(3)
		r.ObserveLifecycleSweep("expiry", 5)
	})
	assert.Nil(t, r.Handler())

	nop := NewNop()
	assert.NotPanics(t, func() {
		nop.ObserveChunkWrite("hot", 1024, time.Millisecond, true)
	})
	assert.Nil(t, nop.Handler())
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := New()
	reg.ObserveChunkWrite("hot", 1024, 5*time.Millisecond, true)
	reg.SetActiveSessions(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "vaultfs_upload_chunks_total")
	assert.Contains(t, body, "vaultfs_active_upload_sessions")
}
