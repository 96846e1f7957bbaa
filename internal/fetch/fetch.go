// internal/fetch/fetch.go
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"proxystat/internal/pool"
)

// MaxRedirects 는 한 번의 Fetch 에서 따라가는 최대 redirect 횟수.
const MaxRedirects = 5

const userAgent = "proxystat/1.0"

var (
	// ErrTooManyRedirects: redirect 가 MaxRedirects 를 초과.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrTimeout: 요청이 설정된 timeout 안에 끝나지 않음.
	ErrTimeout = errors.New("request timed out")
)

// HTTPStatusError represents a non-2xx, non-redirect response.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("request failed %d: %s", e.StatusCode, e.URL)
}

// NetworkError wraps connect / TLS / read failures.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Options
// ------------------------------------------------------------
// Timeout: 요청 1건(redirect 포함 전체)에 대한 제한 시간.
// AllowInsecureTLS: true 일 때만 TLS 인증서 검증을 생략한다.
type Options struct {
	Timeout          time.Duration
	AllowInsecureTLS bool
}

// Client
// ------------------------------------------------------------
// 로그 인덱스 페이지 / 로그 파일 텍스트를 가져오는 HTTP 클라이언트.
//   - 301/302/303/307/308 redirect 최대 5회 추적
//   - 2xx 가 아니면 HTTPStatusError
//   - timeout 초과 시 ErrTimeout
//
// 재시도는 하지 않는다. 재시도 여부는 호출자가 결정한다.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// New creates a Client. The transport is cloned from http.DefaultTransport so
// connection pooling behaves like the standard client.
func New(opts Options) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.AllowInsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
	}
}

// checkRedirect 는 net/http 가 redirect 를 따라가기 직전에 호출된다.
// via 에는 지금까지 보낸 요청들이 들어 있으므로 len(via) 가 곧 redirect 횟수.
func checkRedirect(_ *http.Request, via []*http.Request) error {
	if len(via) > MaxRedirects {
		return ErrTooManyRedirects
	}
	return nil
}

// Fetch
//
// url 의 본문을 텍스트로 읽어 반환한다.
// ctx 취소 또는 Options.Timeout 초과 시 요청은 즉시 중단된다.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/html, text/plain, */*")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classify(url, err)
	}
	defer resp.Body.Close()

	// Location 없는 3xx 도 여기로 떨어진다 → status error 로 취급
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", classify(url, err)
	}
	// string 변환에서 복사되므로 버퍼는 바로 반환해도 된다
	return buf.String(), nil
}

// classify 는 net/http 에러를 ErrTooManyRedirects / ErrTimeout / NetworkError 로 분류한다.
func classify(url string, err error) error {
	if errors.Is(err, ErrTooManyRedirects) {
		return fmt.Errorf("%w: %s", ErrTooManyRedirects, url)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	return &NetworkError{URL: url, Err: err}
}
