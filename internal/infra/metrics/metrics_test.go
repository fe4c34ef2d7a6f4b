package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveNetworkRequestLabels(t *testing.T) {
	before := testutil.ToFloat64(NetworkRequestTotal.WithLabelValues("unknown", "op", "t", "error"))
	ObserveNetworkRequest("", "op", "t", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(NetworkRequestTotal.WithLabelValues("unknown", "op", "t", "error"))
	if after-before != 1 {
		t.Fatalf("ожидали +1 к счётчику ошибок, получили %v", after-before)
	}
}

func TestMustRegisterOnFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)
	IncSourceSync("updated")
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "dashboard_source_sync_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("метрика синхронизации не зарегистрирована")
	}
}
