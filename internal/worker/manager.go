// internal/worker/manager.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"proxystat/internal/config"
	"proxystat/internal/fetch"
	"proxystat/internal/identity"
	"proxystat/internal/index"
	"proxystat/internal/metrics"
	"proxystat/internal/report"
	"proxystat/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrIndexEmpty: index 페이지에서 로그 파일 링크를 하나도 찾지 못함.
	ErrIndexEmpty = errors.New("no log files found in index")

	// ErrCalculationInProgress: 다른 계산이 아직 끝나지 않음.
	ErrCalculationInProgress = errors.New("calculation already in progress")
)

// Result 는 계산 1회의 결과.
type Result struct {
	RunID    string
	FileName string // 저장된 스냅샷 파일명
	Document report.Document
	Summary  report.Summary

	Files    int // 처리한 로그 파일 수
	Events   int // 파싱된 이벤트 수
	Dropped  int // identity 를 확정하지 못해 버린 이벤트 수
	Sessions int
}

// Calculator 는 계산 파이프라인 전체를 제어한다.
//
//	index fetch → 링크 추출 → 로그 파일 병렬 fetch/parse
//	→ merge/정렬 → identity 보정 → 세션 집계 → 문서화 → 저장 → (S3 아카이브)
//
// 한 번에 하나의 계산만 수행한다. 진행 중에 들어온 요청은 기다리지 않고
// ErrCalculationInProgress 로 바로 거절한다.
type Calculator struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	fetcher  Fetcher
	store    *Store
	archiver Archiver // nil 이면 아카이브 비활성
	encoder  *Encoder

	loc *time.Location
	now func() time.Time

	running sync.Mutex
	latest  atomic.Pointer[string]
}

// NewCalculator 는 저장소에 있는 가장 최근 스냅샷으로 latest 를 초기화한다.
func NewCalculator(
	cfg *config.Config,
	m *metrics.Metrics,
	fetcher Fetcher,
	store *Store,
	archiver Archiver,
) (*Calculator, error) {
	c := &Calculator{
		cfg:      cfg,
		metrics:  m,
		fetcher:  fetcher,
		store:    store,
		archiver: archiver,
		encoder:  NewEncoder(),
		loc:      cfg.Location(),
		now:      time.Now,
	}

	name, err := store.Latest()
	if err != nil {
		return nil, err
	}
	if name != "" {
		c.latest.Store(&name)
	}
	return c, nil
}

// LatestFile 은 가장 최근에 저장된 스냅샷 파일명. 없으면 "".
func (c *Calculator) LatestFile() string {
	if p := c.latest.Load(); p != nil {
		return *p
	}
	return ""
}

// Calculate
//
// 계산을 한 번 수행하고 스냅샷을 저장한다.
// 로그 파일 중 하나라도 실패하면 계산 전체가 실패하며,
// 에러는 listing 순서상 첫 번째 실패 URL 기준이다.
// 아카이브 실패는 로그/지표에만 남고 계산 결과에는 영향이 없다.
func (c *Calculator) Calculate(ctx context.Context) (res *Result, err error) {
	if !c.running.TryLock() {
		c.metrics.CalculationsTotal.WithLabelValues(metrics.ResultBusy).Inc()
		return nil, ErrCalculationInProgress
	}
	defer c.running.Unlock()

	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	start := time.Now()

	defer func() {
		elapsed := time.Since(start)
		c.metrics.CalculationDuration.Observe(elapsed.Seconds())

		if err != nil {
			c.metrics.CalculationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			logger.Error().Err(err).Dur("duration", elapsed).Msg("calculation failed")
			return
		}
		c.metrics.CalculationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		c.metrics.LastSuccessTimestamp.SetToCurrentTime()
		logger.Info().
			Str("file", res.FileName).
			Int("files", res.Files).
			Int("events", res.Events).
			Int("dropped", res.Dropped).
			Int("players", len(res.Summary.PlayerTotals)).
			Int("sessions", res.Sessions).
			Dur("duration", elapsed).
			Msg("calculation finished")
	}()

	logger.Info().Str("url", c.cfg.LogsURL).Msg("calculation started")

	// ------------------------------------------------------------
	// 1) index 페이지 → 로그 파일 URL 목록
	// ------------------------------------------------------------
	doc, err := c.fetcher.Fetch(ctx, c.cfg.LogsURL)
	if err != nil {
		c.countFetchError(err)
		return nil, fmt.Errorf("fetch log index %s: %w", c.cfg.LogsURL, err)
	}

	urls := index.ExtractLogURLs(doc, c.cfg.LogsURL)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrIndexEmpty, c.cfg.LogsURL)
	}
	logger.Debug().Int("files", len(urls)).Msg("log files listed")

	// ------------------------------------------------------------
	// 2) 병렬 fetch + parse (하나라도 실패하면 중단)
	// ------------------------------------------------------------
	results := FetchAndParseAll(ctx, urls, c.cfg.MaxConcurrentDownloads, c.fetcher, c.loc)

	for _, r := range results {
		if r.Err != nil {
			c.countFetchError(r.Err)
			logger.Warn().Err(r.Err).Str("url", r.URL).Msg("log file fetch failed")
		}
	}
	if err := FirstError(results); err != nil {
		return nil, err
	}
	c.metrics.LogFilesFetchedTotal.Add(float64(len(results)))

	// ------------------------------------------------------------
	// 3) merge → 전역 순서 정렬 → identity 보정 → 세션 집계
	// ------------------------------------------------------------
	events := MergeEvents(results)
	c.metrics.EventsParsedTotal.Add(float64(len(events)))

	session.SortEvents(events)
	resolved, dropped := identity.Resolve(events)
	c.metrics.EventsDroppedTotal.Add(float64(dropped))

	calculatedAt := c.now().In(c.loc)
	rep := session.Aggregate(resolved, calculatedAt)
	sessions := rep.SessionCount()
	c.metrics.SessionsTotal.Add(float64(sessions))

	// ------------------------------------------------------------
	// 4) 문서화 → 저장
	// ------------------------------------------------------------
	document := report.Build(rep)
	data, err := c.encoder.EncodeSnapshot(document)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	fileName, err := c.store.Save(SnapshotName(calculatedAt), data)
	if err != nil {
		return nil, err
	}
	c.latest.Store(&fileName)

	// ------------------------------------------------------------
	// 5) S3 아카이브 (실패해도 계산은 성공)
	// ------------------------------------------------------------
	if c.archiver != nil {
		c.archive(context.WithoutCancel(ctx), logger, runID, calculatedAt, fileName, data)
	}

	return &Result{
		RunID:    runID,
		FileName: fileName,
		Document: document,
		Summary:  report.Summarize(document),
		Files:    len(results),
		Events:   len(events),
		Dropped:  dropped,
		Sessions: sessions,
	}, nil
}

func (c *Calculator) archive(
	ctx context.Context,
	logger zerolog.Logger,
	runID string,
	calculatedAt time.Time,
	fileName string,
	data []byte,
) {
	key := BuildS3Key(c.cfg.Archive.Prefix, calculatedAt, fileName)

	gz, err := c.encoder.CompressGZ(data)
	if err == nil {
		err = c.archiver.Upload(ctx, key, gz, runID)
	}
	if err != nil {
		c.metrics.ArchiveUploadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		logger.Error().Err(err).Str("key", key).Msg("snapshot archive failed")
		return
	}

	c.metrics.ArchiveUploadsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	logger.Info().Str("key", key).Int("bytes", len(gz)).Msg("snapshot archived")
}

// countFetchError 는 fetch 에러 종류별로 지표를 올린다.
func (c *Calculator) countFetchError(err error) {
	c.metrics.FetchErrorsTotal.WithLabelValues(fetchErrorKind(err)).Inc()
}

func fetchErrorKind(err error) string {
	var statusErr *fetch.HTTPStatusError
	switch {
	case errors.Is(err, fetch.ErrTimeout):
		return "timeout"
	case errors.Is(err, fetch.ErrTooManyRedirects):
		return "redirects"
	case errors.As(err, &statusErr):
		return "status"
	default:
		return "network"
	}
}
