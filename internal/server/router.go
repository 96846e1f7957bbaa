package server

import (
	"net/http"
	"time"

	"proxystat/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
)

// RouterOptions 는 라우터 구성에 필요한 값들.
type RouterOptions struct {
	Metrics *metrics.Metrics

	// 클라이언트 IP 당 분당 계산 요청 수. 0 이면 제한 없음.
	CalculateRateLimit int
}

// NewRouter
//
// 엔드포인트:
//   - POST /api/calculate       : 계산 실행 (IP 별 rate limit)
//   - GET  /api/status          : 최신 스냅샷 파일명
//   - GET  /api/download/latest : 최신 스냅샷 다운로드
//   - GET  /api/download?file=  : 지정 스냅샷 다운로드
//   - GET  /metrics             : Prometheus
//   - GET  /health              : LB health check
//   - GET  /*                   : 정적 파일
//
// 그 외 메서드는 405.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.With(calculateLimiter(opts.CalculateRateLimit)).Post("/api/calculate", h.HandleCalculate)
	r.Get("/api/status", h.HandleStatus)
	r.Get("/api/download/latest", h.HandleDownloadLatest)
	r.Get("/api/download", h.HandleDownload)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/health", h.HandleHealth)

	r.Get("/*", h.HandleStatic)

	return r
}

// calculateLimiter 는 계산 요청을 클라이언트 IP 기준으로 제한한다.
// 계산 1회가 수십 개 파일을 내려받으므로 upstream 보호 목적.
func calculateLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "too many calculation requests")
		}),
	)
}

// requestLogger 는 요청 1건당 한 줄의 access log 를 남긴다.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		ev := log.Debug()
		if status >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Str("ip", clientIP(r)).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
