// internal/model/event.go
package model

import "time"

// Action
// ------------------------------------------------------------
// 로그 라인에서 읽어낸 플레이어 동작. login / logout 두 가지뿐이다.
type Action string

const (
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
)

// RawEvent
// ------------------------------------------------------------
// 로그 파일 한 줄에서 파싱된 단일 플레이어 이벤트.
// 파이프라인의 "기본 단위"이며
// parser → identity resolver → session aggregator 까지 그대로 전달된다.
//
// SourceFile / LineNumber 는 출처 정보일 뿐이고,
// 같은 초(second)에 발생한 이벤트들의 정렬 tie-break 에만 사용된다.
type RawEvent struct {
	Timestamp  time.Time // 라인에 기록된 시각 (초 단위 정밀도)
	SourceFile string    // 로그 파일 base name
	LineNumber int       // 1부터 시작

	NameRaw string // 라인에 적힌 플레이어 이름 (비어있을 수 있음)
	UUIDRaw string // 라인에 적힌 uuid (비어있을 수 있음)

	Action Action

	// logout 라인에만 존재. nil = 라인에 값이 없음.
	DurationSecondsFromLine *int64
	TrafficKBFromLine       *float64
}

// TrafficKB returns the traffic embedded on the line, zero when absent.
func (e RawEvent) TrafficKB() float64 {
	if e.TrafficKBFromLine == nil {
		return 0
	}
	return *e.TrafficKBFromLine
}

// ResolvedEvent
// ------------------------------------------------------------
// identity 보정이 끝난 RawEvent.
// PlayerName 은 절대 비어있지 않고, PlayerUUID 는 한 번도 관측되지
// 않았다면 빈 문자열로 남는다. 생성 이후에는 변경하지 않는다.
type ResolvedEvent struct {
	RawEvent

	PlayerName string
	PlayerUUID string
}
