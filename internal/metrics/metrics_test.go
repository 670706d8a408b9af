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

func TestRecordFSOp(t *testing.T) {
	okBefore := testutil.ToFloat64(fsOpsTotal.WithLabelValues("read", "ok"))
	errBefore := testutil.ToFloat64(fsOpsTotal.WithLabelValues("read", "error"))

	RecordFSOp("read", nil)
	RecordFSOp("read", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(fsOpsTotal.WithLabelValues("read", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(fsOpsTotal.WithLabelValues("read", "error")))
}

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("insertion"))
	RecordMutation("insertion")
	assert.Equal(t, before+1, testutil.ToFloat64(mutationsTotal.WithLabelValues("insertion")))
}

func TestGauges(t *testing.T) {
	SetUsage(4096)
	assert.Equal(t, float64(4096), testutil.ToFloat64(fsUsageBytes))

	SetHauntedFiles(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(hauntedFiles))
}

func TestRecordRewrite(t *testing.T) {
	before := testutil.ToFloat64(rewritesTotal.WithLabelValues("fallback"))
	RecordRewrite("fallback", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(rewritesTotal.WithLabelValues("fallback")))
}

func TestHandler(t *testing.T) {
	RecordPersist(nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "shadowscript_fs_persist_total"))
}
