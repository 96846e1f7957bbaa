// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"strings"

	"proxystat/internal/config"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init
//
// 애플리케이션 시작 시 한 번만 호출되는 로거 초기화 함수.
//
//  1. 로그 포맷:
//     - logPretty=true: 콘솔용 컬러 텍스트
//     - logPretty=false: JSON (수집/검색용)
//
//  2. 공통 필드: 모든 로그에 "service", "instance" 를 붙인다.
//
//  3. 샘플링: logSampleN > 1 이면 Debug/Info 는 N개 중 1개만 기록.
//     Warn/Error 는 항상 기록.
//
// 사용 예:
//
//	logger.Init(cfg)
//	log.Info().Str("run_id", id).Msg("calculation started")
func Init(cfg *config.Config) {
	Setup(cfg, os.Stdout)
}

// Setup 은 출력 대상을 지정할 수 있는 Init. 테스트에서 buffer 로 받을 때 쓴다.
func Setup(cfg *config.Config, out io.Writer) zerolog.Logger {

	// 1) 로그 레벨 (잘못된 값이면 info)
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil && cfg.LogLevel != "" {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	// 2) 출력 방식
	w := out
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	// 3) 공통 태그
	base := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	// 4) 샘플링
	logger := base
	if cfg.LogSampleN > 1 {
		logger = base.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
		})
	}

	// 5) 전역 Logger 교체 + 표준 log 연결
	zlog.Logger = logger
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)

	return logger
}
