// internal/model/report.go
package model

import (
	"sort"
	"time"
)

// Session
// ------------------------------------------------------------
// 한 플레이어의 login → logout 구간.
// DurationSeconds 는 항상 0 이상이며, 라인에 명시된 duration 이
// 있으면 타임스탬프 차이보다 우선한다.
type Session struct {
	LoginTime       time.Time
	LogoutTime      time.Time
	DurationSeconds int64
	TrafficKB       float64
}

// PlayerAggregate
// ------------------------------------------------------------
// 플레이어 단위 집계 결과.
// Sessions 순서 = 이벤트 처리(시간) 순서.
type PlayerAggregate struct {
	UUID                 string // 처음 관측된 non-empty uuid
	Sessions             []Session
	TotalTrafficKB       float64
	TotalDurationSeconds int64
}

// AverageSpeed returns MB per minute. Zero online time yields exactly 0.
func (p *PlayerAggregate) AverageSpeed() float64 {
	minutes := float64(p.TotalDurationSeconds) / 60
	if minutes <= 0 {
		return 0
	}
	return (p.TotalTrafficKB / 1024) / minutes
}

// ProxyReport
// ------------------------------------------------------------
// 한 번의 계산(run) 전체 결과.
// 매 계산 요청마다 새로 만들어지고, 생성 이후에는 변경하지 않는다.
// 저장 시에는 CalculationDate 기반 파일명으로 불변 스냅샷이 된다.
type ProxyReport struct {
	Players map[string]*PlayerAggregate

	TotalTrafficKB       float64
	TotalDurationSeconds int64

	CalculationDate time.Time
}

// Names returns player names in lexicographic order.
func (r *ProxyReport) Names() []string {
	names := make([]string, 0, len(r.Players))
	for name := range r.Players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SessionCount 는 전체 플레이어의 세션 수 합계.
func (r *ProxyReport) SessionCount() int {
	n := 0
	for _, p := range r.Players {
		n += len(p.Sessions)
	}
	return n
}

// AverageSpeed returns fleet-wide MB per hour. Zero online time yields exactly 0.
func (r *ProxyReport) AverageSpeed() float64 {
	hours := float64(r.TotalDurationSeconds) / 3600
	if hours <= 0 {
		return 0
	}
	return (r.TotalTrafficKB / 1024) / hours
}
