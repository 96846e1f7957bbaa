package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"proxystat/internal/config"
	"proxystat/internal/fetch"
	"proxystat/internal/logger"
	"proxystat/internal/metrics"
	"proxystat/internal/server"
	"proxystat/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {

	// ====================================================================
	// CPU 설정
	// ====================================================================
	//
	// 컨테이너 vCPU 제한보다 GOMAXPROCS 가 크면 스케줄링 낭비가 생긴다.
	// 계산은 I/O(로그 다운로드) 위주라 기본 2 로 충분하다.
	// 환경변수 GOMAXPROCS 로 재정의 가능.
	// ====================================================================
	if v := os.Getenv("GOMAXPROCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			runtime.GOMAXPROCS(n)
		}
	} else {
		runtime.GOMAXPROCS(2)
	}

	// ====================================================================
	// Config & Logger & Metrics 초기화
	// ====================================================================
	//
	// - Config: 기본값 → 설정 파일(json/yaml) → PROXYSTAT_* 환경변수
	// - 설정이 잘못되면 서버를 띄우지 않는다 (잘못된 logsUrl 로 계산해봐야 의미 없음)
	// ====================================================================
	cfg, err := config.Load()
	if err != nil {
		// logger 초기화 전이므로 기본 전역 logger 로 남긴다
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg)

	m := metrics.New()

	// ====================================================================
	// Calculator 구성
	// ====================================================================
	//
	//  - fetch.Client : index/로그 파일 다운로드 (timeout, redirect 제한)
	//  - Store        : data 디렉토리의 스냅샷 파일 (system of record)
	//  - S3Uploader   : archive.bucket 이 설정된 경우에만. 실패해도 계산은 성공
	// ====================================================================
	client := fetch.New(fetch.Options{
		Timeout:          cfg.RequestTimeout(),
		AllowInsecureTLS: cfg.AllowInsecureTLS,
	})
	if cfg.AllowInsecureTLS {
		log.Warn().Msg("TLS certificate verification disabled for log fetching")
	}

	store, err := worker.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("init snapshot store")
	}

	// interface 에 nil *S3Uploader 가 들어가지 않도록 분기
	var archiver worker.Archiver
	if cfg.Archive.Enabled() {
		up, err := worker.NewS3Uploader(context.Background(), cfg.Archive)
		if err != nil {
			log.Fatal().Err(err).Msg("init s3 archiver")
		}
		archiver = up
		log.Info().
			Str("bucket", cfg.Archive.Bucket).
			Str("prefix", cfg.Archive.Prefix).
			Msg("snapshot archive enabled")
	}

	calc, err := worker.NewCalculator(cfg, m, client, store, archiver)
	if err != nil {
		log.Fatal().Err(err).Msg("init calculator")
	}
	if name := calc.LatestFile(); name != "" {
		log.Info().Str("file", name).Msg("latest snapshot loaded")
	}

	// ====================================================================
	// HTTP Router
	// ====================================================================
	h := server.NewHandler(calc, store, cfg.PublicDir)
	router := server.NewRouter(h, server.RouterOptions{
		Metrics:            m,
		CalculateRateLimit: cfg.CalculateRateLimit,
	})

	// ====================================================================
	// HTTP 서버 설정
	// ====================================================================
	//
	// WriteTimeout:
	//  - /api/calculate 는 모든 로그 파일을 받은 뒤에 응답한다.
	//  - 파일 1개당 timeout 이 RequestTimeout 이므로
	//    (index + 파일 수/동시성) 만큼 걸릴 수 있어 넉넉하게 잡는다.
	// ====================================================================
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// ====================================================================
	// Graceful Shutdown
	// ====================================================================
	//
	// SIGTERM/SIGINT 수신 시 새 요청을 받지 않고,
	// 진행 중인 계산 응답이 끝날 때까지 최대 30초 기다린다.
	// ====================================================================
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("logs_url", cfg.LogsURL).
		Str("data_dir", cfg.DataDir).
		Int("max_concurrent_downloads", cfg.MaxConcurrentDownloads).
		Msg("proxystat server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server terminated")
	}

	<-done
	log.Info().Msg("shutdown complete")
}
