package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil, zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.tasksTotal)
	assert.NotNil(t, collector.taskDuration)
	assert.NotNil(t, collector.workerSpawnsTotal)
}

func TestCollector_RecordTask(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil, zap.NewNop())

	collector.RecordTask(true, "fintech", 2*time.Second, 3)
	collector.RecordTask(false, "", 100*time.Millisecond, 1)

	count := testutil.CollectAndCount(collector.tasksTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil, zap.NewNop())

	collector.RecordHTTPRequest("POST", "/api/v1/tasks", 200, 100*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/api/v1/tasks", 503, 10*time.Millisecond)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_PoolGauges(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), func() (int, int) { return 4, 10 }, zap.NewNop())

	assert.Equal(t, 4.0, testutil.ToFloat64(collector.poolActiveWorkers))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.poolMaxWorkers))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(503))
}
