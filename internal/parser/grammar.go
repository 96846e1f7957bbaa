// internal/parser/grammar.go
package parser

import "regexp"

// 로그 라인 문법
// ------------------------------------------------------------
//
//	[2024-05-01] [10-00-00] [Player] Player Alice uuid:abc-123 logged in from /1.2.3.4
//	[2024-05-01 10-30-00] [Player] Player Alice uuid:abc-123 logged out from /1.2.3.4, online duration 30 minutes, traffic used 12.5 MB
//
// 날짜와 시각은 각각 대괄호로 감싸거나 하나의 대괄호 안에 공백으로
// 구분해 적을 수 있다. 시각 구분자는 ':' 가 아니라 '-' 이다.
// 이름은 생략될 수 있고 (uuid 만 남은 라인), uuid 값도 빈 문자열일 수 있다.
// 키워드는 모두 대소문자 구분 없이 매칭한다.
var (
	basePattern = regexp.MustCompile(
		`(?i)^\[(\d{4}-\d{2}-\d{2})(?:\]\s*\[|\s+)(\d{2})-(\d{2})-(\d{2})\]` +
			`\s+\[Player\]\s+Player\s+(?:(\S.*?)\s+)?uuid:(.*?)\s+logged\s+(in|out)\s+from\b`,
	)

	// logout 라인의 부가 정보. 라인 어디에 있어도 된다.
	detailPattern = regexp.MustCompile(`(?i)online duration ([^,]+),\s*traffic used ([\d.]+)\s*(KB|MB|GB)`)

	durationPattern = regexp.MustCompile(`(?i)^([\d.]+)\s*(seconds?|minutes?|hours?)$`)
)
