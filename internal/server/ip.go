package server

import (
	"net"
	"net/http"
	"strings"
)

// ------------------------------------------------------------
// IP Utility Functions
//
// 서버가 reverse proxy / ALB 뒤에 있으면 RemoteAddr 만으로는
// 실제 사용자 IP 를 알 수 없다. 계산 요청 rate limit 의 key 로
// 쓸 클라이언트 IP 를 헤더 기반으로 추출한다.
// ------------------------------------------------------------

// isPublicIP:
//   - private / loopback / link-local 등이 아닌 경우 true
//   - X-Forwarded-For 에서 내부 IP 를 건너뛰기 위해 필요
func isPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsPrivate() {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return false
	}
	return true
}

// safeParseIP:
//   - 공백/빈 값 대응
//   - 잘못된 값이면 nil
func safeParseIP(s string) net.IP {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return net.ParseIP(s)
}

// ------------------------------------------------------------
// clientIP:
//
// 우선순위:
//  1. X-Forwarded-For → 첫 번째 public IP
//  2. X-Real-IP → public IP 일 때
//  3. RemoteAddr (private 이어도 그대로 사용)
//
// 사내망/로컬에서 직접 붙는 경우가 대부분이므로
// 마지막 단계에서는 private IP 도 key 로 인정한다.
// ------------------------------------------------------------
func clientIP(r *http.Request) string {

	// 1) X-Forwarded-For, 예: "203.0.113.1, 10.0.1.24"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			ip := safeParseIP(part)
			if isPublicIP(ip) {
				return ip.String()
			}
		}
	}

	// 2) X-Real-IP (nginx)
	if ip := safeParseIP(r.Header.Get("X-Real-IP")); isPublicIP(ip) {
		return ip.String()
	}

	// 3) RemoteAddr fallback
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := safeParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}

// rateLimitKey 는 httprate.KeyFunc 시그니처에 맞춘 clientIP.
func rateLimitKey(r *http.Request) (string, error) {
	return clientIP(r), nil
}
