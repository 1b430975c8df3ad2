package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はレジストリから指定名・ラベルのメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// TestRecordNewsFetch は結果別カウンタとレイテンシが記録されることを検証する。
func TestRecordNewsFetch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordNewsFetch(OutcomeOK, 200*time.Millisecond)
	c.RecordNewsFetch(OutcomeOK, 300*time.Millisecond)
	c.RecordNewsFetch(OutcomeTimeout, 8*time.Second)

	ok := findMetric(t, reg, "myportal_news_fetch_total", map[string]string{"outcome": OutcomeOK})
	if ok == nil || ok.GetCounter().GetValue() != 2 {
		t.Errorf("ok count = %v, want 2", ok)
	}
	timeout := findMetric(t, reg, "myportal_news_fetch_total", map[string]string{"outcome": OutcomeTimeout})
	if timeout == nil || timeout.GetCounter().GetValue() != 1 {
		t.Errorf("timeout count = %v, want 1", timeout)
	}

	latency := findMetric(t, reg, "myportal_news_fetch_duration_seconds", nil)
	if latency == nil || latency.GetHistogram().GetSampleCount() != 3 {
		t.Errorf("latency sample count = %v, want 3", latency)
	}
}

// TestRecordUpstreamStatus はステータスコードがラベル別に記録されることを検証する。
func TestRecordUpstreamStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamStatus(200)
	c.RecordUpstreamStatus(503)
	c.RecordUpstreamStatus(503)

	m := findMetric(t, reg, "myportal_upstream_http_status_total", map[string]string{"status_code": "503"})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("503 count = %v, want 2", m)
	}
}

// TestRecordLoginAndSettings は成否ラベルで記録されることを検証する。
func TestRecordLoginAndSettings(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(true)
	c.RecordLogin(false)
	c.RecordLogin(false)
	c.RecordFXFetch(false)
	c.RecordSettingsSave("news", true)

	if m := findMetric(t, reg, "myportal_login_attempts_total", map[string]string{"result": "failure"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("login failure = %v, want 2", m)
	}
	if m := findMetric(t, reg, "myportal_fx_fetch_total", map[string]string{"result": "failure"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("fx failure = %v, want 1", m)
	}
	if m := findMetric(t, reg, "myportal_settings_save_total", map[string]string{"collection": "news", "result": "success"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("settings save = %v, want 1", m)
	}
}

// TestNewCollector_DoubleRegisterPanics は同一レジストリへの二重登録がpanicとなることを検証する。
func TestNewCollector_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}
