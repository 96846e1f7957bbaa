// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proxystat"

// 계산 결과 label
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultBusy    = "busy"
)

// Metrics 는 서버 상태를 나타내는 collector 모음이다.
// 전역 registry 를 쓰지 않고 인스턴스마다 registry 를 갖는다 (테스트 격리).
type Metrics struct {
	registry *prometheus.Registry

	// ======================
	// 계산 레벨 지표
	// ======================

	// CalculationsTotal
	// - /api/calculate 로 시작된 계산 수, result=success|failure|busy.
	// - busy 는 이미 다른 계산이 진행 중이라 409 로 거절된 요청.
	CalculationsTotal *prometheus.CounterVec

	// CalculationDuration
	// - 계산 1회의 전체 소요 시간 (index fetch ~ 스냅샷 저장).
	// - 대부분 로그 파일 다운로드 시간이므로 proxy 서버 응답 속도를 간접적으로 보여준다.
	CalculationDuration prometheus.Histogram

	// LastSuccessTimestamp
	// - 마지막 성공 계산의 unix 시각. 알람에서 "오래 갱신 안 됨" 판단용.
	LastSuccessTimestamp prometheus.Gauge

	// ======================
	// fetch / parse 지표
	// ======================

	// LogFilesFetchedTotal
	// - 정상적으로 받아서 파싱까지 끝난 로그 파일 수.
	LogFilesFetchedTotal prometheus.Counter

	// FetchErrorsTotal
	// - 실패한 fetch 수, kind=timeout|redirects|status|network.
	// - 하나라도 실패하면 계산 전체가 실패하므로 CalculationsTotal{failure} 의 원인 분석용.
	FetchErrorsTotal *prometheus.CounterVec

	// EventsParsedTotal
	// - 문법에 맞아 RawEvent 로 변환된 라인 수.
	EventsParsedTotal prometheus.Counter

	// EventsDroppedTotal
	// - 이름/uuid 를 끝내 확정할 수 없어 버린 이벤트 수.
	// - 지속적으로 증가하면 로그 포맷이 바뀌었을 가능성이 있다.
	EventsDroppedTotal prometheus.Counter

	// SessionsTotal
	// - 계산으로 만들어진 세션 수 (계산마다 누적).
	SessionsTotal prometheus.Counter

	// ======================
	// 아카이브 지표
	// ======================

	// ArchiveUploadsTotal
	// - S3 아카이브 업로드 결과, result=success|failure.
	// - 실패해도 계산은 성공으로 처리되므로 이 지표로만 드러난다.
	ArchiveUploadsTotal *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Calculation runs by result.",
		}, []string{"result"}),

		CalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Wall time of a calculation run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful calculation.",
		}),

		LogFilesFetchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_files_fetched_total",
			Help:      "Log files downloaded and parsed.",
		}),

		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed fetches by kind.",
		}, []string{"kind"}),

		EventsParsedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_parsed_total",
			Help:      "Log lines recognized as login/logout events.",
		}),

		EventsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because identity could not be resolved.",
		}),

		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions produced by calculations.",
		}),

		ArchiveUploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_uploads_total",
			Help:      "Snapshot archive uploads by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.CalculationsTotal,
		m.CalculationDuration,
		m.LastSuccessTimestamp,
		m.LogFilesFetchedTotal,
		m.FetchErrorsTotal,
		m.EventsParsedTotal,
		m.EventsDroppedTotal,
		m.SessionsTotal,
		m.ArchiveUploadsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler 는 이 인스턴스의 registry 만 노출하는 /metrics 핸들러.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
