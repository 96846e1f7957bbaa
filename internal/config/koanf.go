// internal/config/koanf.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths 는 CONFIG_PATH 가 없을 때 순서대로 찾는 파일들.
// JSON 은 YAML 의 부분집합이므로 config.json 도 yaml parser 로 읽는다.
var DefaultConfigPaths = []string{
	"config.json",
	"config.yaml",
	"config.yml",
}

// ConfigPathEnvVar 는 설정 파일 경로를 직접 지정하는 환경 변수.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix 는 설정 override 용 환경 변수 prefix.
const EnvPrefix = "PROXYSTAT_"

func defaultConfig() *Config {
	return &Config{
		RequestTimeoutMs:       15000,
		AllowInsecureTLS:       false,
		MaxConcurrentDownloads: 4,

		ServerHost: "0.0.0.0",
		ServerPort: 3000,
		DataDir:    "data",
		PublicDir:  "public",

		CalculateRateLimit: 10,

		LogLevel:    "info",
		LogPretty:   false,
		LogSampleN:  0,
		ServiceName: "proxystat",

		Archive: ArchiveConfig{
			Prefix:  "snapshots",
			Timeout: 10 * time.Second,
			Retries: 3,
		},
	}
}

// Load
//
// 설정을 3단계로 쌓아 올린다.
//
//	1) struct 기본값
//	2) 설정 파일 (CONFIG_PATH 또는 DefaultConfigPaths 중 첫 번째)
//	3) PROXYSTAT_* 환경 변수
//
// 이후 Validate 로 검증/정규화까지 끝낸 값을 반환한다.
// 에러가 나면 main 에서 즉시 종료한다 (fail-fast).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile
//
// CONFIG_PATH 가 지정되었는데 파일이 없으면 에러 (오타를 조용히 넘기지 않는다).
// 기본 경로에서 아무것도 못 찾으면 "" (기본값 + env 만 사용).
func findConfigFile() (string, error) {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}

	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

var envMappings = map[string]string{
	"proxystat_logs_url":                 "logsUrl",
	"proxystat_request_timeout_ms":       "requestTimeoutMs",
	"proxystat_allow_insecure_tls":       "allowInsecureTls",
	"proxystat_max_concurrent_downloads": "maxConcurrentDownloads",
	"proxystat_timezone":                 "timezone",

	"proxystat_server_host": "serverHost",
	"proxystat_server_port": "serverPort",
	"proxystat_data_dir":    "dataDir",
	"proxystat_public_dir":  "publicDir",

	"proxystat_calculate_rate_limit": "calculateRateLimit",

	"proxystat_log_level":    "logLevel",
	"proxystat_log_pretty":   "logPretty",
	"proxystat_log_sample_n": "logSampleN",
	"proxystat_service_name": "serviceName",
	"proxystat_instance_id":  "instanceId",

	"proxystat_archive_bucket":  "archive.bucket",
	"proxystat_archive_prefix":  "archive.prefix",
	"proxystat_archive_region":  "archive.region",
	"proxystat_archive_timeout": "archive.timeout",
	"proxystat_archive_retries": "archive.retries",
}

// envTransformFunc 는 환경 변수 이름을 koanf key 로 바꾼다.
// 매핑에 없는 변수는 "" 를 반환해 무시한다.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
