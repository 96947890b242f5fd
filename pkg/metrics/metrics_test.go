package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value gathers reg and returns the counter, gauge or histogram-count value
// of the series of family name carrying exactly the given label values.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue series
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

type codedError struct{ code string }

func (e codedError) Error() string     { return e.code }
func (e codedError) ErrorCode() string { return e.code }

func TestStoreMetricsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newStoreMetrics(reg)

	m.RecordOperation("books", "Find", time.Millisecond, nil)
	m.RecordOperation("books", "Create", time.Millisecond, codedError{code: "DuplicateIdentifier"})
	m.RecordOperation("books", "Create", time.Millisecond, errors.New("disk"))
	m.RecordDocuments("books", "Find", 3)
	m.RecordArchive("compress", time.Second, nil)

	assert.Equal(t, 1.0, value(t, reg, "dittodocs_store_operations_total", map[string]string{"collection": "books", "operation": "Find", "status": "success", "error_code": ""}))
	assert.Equal(t, 1.0, value(t, reg, "dittodocs_store_operations_total", map[string]string{"collection": "books", "operation": "Create", "status": "error", "error_code": "DuplicateIdentifier"}))
	assert.Equal(t, 1.0, value(t, reg, "dittodocs_store_operations_total", map[string]string{"collection": "books", "operation": "Create", "status": "error", "error_code": "unknown"}))
	assert.Equal(t, 1.0, value(t, reg, "dittodocs_archive_processes_total", map[string]string{"kind": "compress", "status": "success"}))
}

func TestCatalogMetricsShareCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors := newCatalogCollectors(reg)

	badger := collectors.forType("badger")
	memory := collectors.forType("memory")

	badger.SetCollections(4)
	memory.SetCollections(1)
	badger.RecordStorageOperation("get", time.Millisecond, nil)

	assert.Equal(t, 4.0, value(t, reg, "dittodocs_catalog_collections", map[string]string{"catalog_type": "badger"}))
	assert.Equal(t, 1.0, value(t, reg, "dittodocs_catalog_collections", map[string]string{"catalog_type": "memory"}))
	assert.Equal(t, 1.0, value(t, reg, "dittodocs_catalog_storage_operations_total", map[string]string{"catalog_type": "badger", "operation": "get", "status": "success"}))
}

func TestSnapshotMetricsCountsBytesOnSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSnapshotMetrics(reg)

	m.RecordTransfer("PutObject", 1024, time.Second, nil)
	m.RecordTransfer("PutObject", 2048, time.Second, errors.New("timeout"))

	assert.Equal(t, 1024.0, value(t, reg, "dittodocs_snapshot_bytes_transferred_total", map[string]string{"operation": "PutObject"}))
	assert.Equal(t, 1.0, value(t, reg, "dittodocs_snapshot_operations_total", map[string]string{"operation": "PutObject", "status": "error"}))
}

func TestNoopWhenDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("global registry already initialized")
	}

	assert.IsType(t, noopStoreMetrics{}, NewStoreMetrics())
	assert.IsType(t, noopCatalogMetrics{}, NewCatalogMetrics("memory"))
	assert.IsType(t, noopSnapshotMetrics{}, NewSnapshotMetrics())
}

func TestServerEndpoints(t *testing.T) {
	srv := NewServer(0)
	assert.Equal(t, ":9090", srv.Addr())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerServeUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(1)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
