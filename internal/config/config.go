// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config
//
// 서비스 실행 시 필요한 모든 설정 값을 보관하는 구조체.
// 프로세스 시작 시점에 Load() 로 한 번 만들어지고
// 이후에는 변경되지 않는 read-only 값이다.
//
// key 이름은 기존 config.json 과 호환되도록 camelCase 를 유지한다.
type Config struct {

	// ---------------------------
	// 로그 원본 (proxy 서버 index)
	// ---------------------------

	LogsURL                string `koanf:"logsUrl" validate:"required,http_url"` // 로그 파일 목록 페이지 (항상 "/" 로 끝나도록 정규화)
	RequestTimeoutMs       int    `koanf:"requestTimeoutMs" validate:"gt=0"`     // 요청 1건당 timeout (ms)
	AllowInsecureTLS       bool   `koanf:"allowInsecureTls"`                     // 인증서 검증 생략 여부
	MaxConcurrentDownloads int    `koanf:"maxConcurrentDownloads" validate:"gt=0"`

	// 로그 타임스탬프를 해석할 timezone (IANA 이름, 빈 값이면 Local)
	Timezone string `koanf:"timezone"`

	// ---------------------------
	// 서버 / 파일 경로
	// ---------------------------

	ServerHost string `koanf:"serverHost" validate:"required"`
	ServerPort int    `koanf:"serverPort" validate:"min=1,max=65535"`

	DataDir   string `koanf:"dataDir" validate:"required"`   // 계산 결과 스냅샷 저장 디렉토리
	PublicDir string `koanf:"publicDir" validate:"required"` // 정적 파일 디렉토리

	// 클라이언트 IP 당 분당 계산 요청 허용 수 (0 이면 제한 없음)
	CalculateRateLimit int `koanf:"calculateRateLimit" validate:"min=0"`

	// ---------------------------
	// 로깅 / 식별자
	// ---------------------------

	LogLevel    string `koanf:"logLevel"`
	LogPretty   bool   `koanf:"logPretty"`
	LogSampleN  uint32 `koanf:"logSampleN"`
	ServiceName string `koanf:"serviceName"`
	InstanceID  string `koanf:"instanceId"`

	// ---------------------------
	// S3 아카이브 (선택)
	// ---------------------------

	Archive ArchiveConfig `koanf:"archive"`

	location *time.Location
}

// ArchiveConfig
//
// Bucket 이 비어 있으면 아카이브는 비활성화된다.
//
// Retry 정책 단일화
// --------------------------------------------
// SDK 기본 retry 와 코드 레벨 retry 가 겹치면 지연을 예측할 수 없으므로
// SDK Retry 는 코드에서 0으로 고정하고, 재시도 횟수는 Retries 만 사용한다.
// --------------------------------------------
type ArchiveConfig struct {
	Bucket  string        `koanf:"bucket"`
	Prefix  string        `koanf:"prefix"`
	Region  string        `koanf:"region"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"` // PutObject 시도당 timeout
	Retries int           `koanf:"retries" validate:"min=0"`
}

// Enabled 는 아카이브 업로드를 할지 여부.
func (a ArchiveConfig) Enabled() bool { return a.Bucket != "" }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate
//
// 태그 기반 검증 후 값 정규화까지 수행한다.
//   - logsUrl: http/https 만 허용, 끝에 "/" 보장
//   - timezone: time.LoadLocation 으로 로드 가능해야 함
func (c *Config) Validate() error {
	c.LogsURL = strings.TrimSpace(c.LogsURL)

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	normalized, err := normalizeLogsURL(c.LogsURL)
	if err != nil {
		return err
	}
	c.LogsURL = normalized

	loc := time.Local
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid config timezone %q: %w", tz, err)
		}
	}
	c.location = loc

	if c.InstanceID == "" {
		c.InstanceID = fallbackInstanceID()
	}
	return nil
}

// normalizeLogsURL 은 scheme 을 확인하고 경로 끝에 "/" 를 붙인다.
// 상대 링크가 디렉토리 기준으로 resolve 되도록 하기 위함.
func normalizeLogsURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid config logsUrl %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid config logsUrl %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid config logsUrl %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String(), nil
}

// Location 은 로그 타임스탬프 해석 및 계산 시각 표기에 쓰는 timezone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// RequestTimeout 은 requestTimeoutMs 를 Duration 으로 변환한 값.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Addr 은 HTTP 서버 bind 주소 (host:port).
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// fallbackInstanceID
//
// 이 서버 인스턴스를 식별하는 고유 값.
//   - 기본: hostname (컨테이너 환경에서는 task-id 형태로 고유)
//   - fallback: 12자리 랜덤 hex
func fallbackInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
