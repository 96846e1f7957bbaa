// internal/session/session.go
package session

import (
	"math"
	"sort"
	"time"

	"proxystat/internal/model"
)

// SortEvents
//
// 원본 이벤트를 전역 처리 순서로 정렬한다 (in-place, stable).
//
//	1차: Timestamp
//	2차: SourceFile (사전순)
//	3차: LineNumber
//
// 서로 다른 파일의 같은 초 이벤트까지 total order 가 정의되므로
// fetch 완료 순서와 관계없이 결과가 항상 같다.
// identity 보정(first-seen 규칙)도 이 순서를 전제로 한다.
func SortEvents(events []model.RawEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return less(&events[i], &events[j])
	})
}

func less(a, b *model.RawEvent) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.SourceFile != b.SourceFile {
		return a.SourceFile < b.SourceFile
	}
	return a.LineNumber < b.LineNumber
}

// player 는 집계 중인 플레이어 상태.
// pending 은 아직 logout 과 짝지어지지 않은 login 시각의 LIFO 스택이며,
// Aggregate 가 끝나면 함께 버려진다.
type player struct {
	agg     *model.PlayerAggregate
	pending []time.Time
}

func (p *player) push(t time.Time) {
	p.pending = append(p.pending, t)
}

func (p *player) pop() (time.Time, bool) {
	n := len(p.pending)
	if n == 0 {
		return time.Time{}, false
	}
	t := p.pending[n-1]
	p.pending = p.pending[:n-1]
	return t, true
}

// Aggregate
//
// 보정된 이벤트를 시간순으로 처리해 플레이어별 세션과 전체 합계를 만든다.
// 입력 slice 는 변경하지 않는다 (정렬은 복사본에서 수행).
//
// login:
//   - 플레이어의 pending 스택에 push
//
// logout:
//   - 가장 최근 pending login 을 pop (LIFO). 겹치는 세션은 가장 가까운 login 과 짝지어진다.
//     실제 접속 흐름을 완벽히 복원하는 것은 아니고 근사치다.
//   - pop 한 login 이 logout 보다 늦으면 (데이터 이상) 버리고 login 없음으로 처리
//   - login 이 없고 라인에 duration 이 있으면 logout - duration 을 login 으로 합성
//   - 그것도 없으면 login = logout (0초 세션)
//   - 최종 duration: 라인 duration 우선, 없으면 타임스탬프 차이 (0 미만은 0)
//   - traffic: 라인 traffic, 없으면 0
//
// 끝까지 짝이 없는 login 은 세션을 만들지 않는다.
func Aggregate(events []model.ResolvedEvent, asOf time.Time) *model.ProxyReport {
	ordered := make([]model.ResolvedEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return less(&ordered[i].RawEvent, &ordered[j].RawEvent)
	})

	players := make(map[string]*player)

	for _, ev := range ordered {
		p, ok := players[ev.PlayerName]
		if !ok {
			p = &player{agg: &model.PlayerAggregate{UUID: ev.PlayerUUID}}
			players[ev.PlayerName] = p
		}
		if p.agg.UUID == "" && ev.PlayerUUID != "" {
			p.agg.UUID = ev.PlayerUUID
		}

		switch ev.Action {
		case model.ActionLogin:
			p.push(ev.Timestamp)

		case model.ActionLogout:
			s := closeSession(p, ev.RawEvent)
			p.agg.Sessions = append(p.agg.Sessions, s)
			p.agg.TotalTrafficKB += s.TrafficKB
			p.agg.TotalDurationSeconds += s.DurationSeconds
		}
	}

	report := &model.ProxyReport{
		Players:         make(map[string]*model.PlayerAggregate, len(players)),
		CalculationDate: asOf,
	}
	for name, p := range players {
		report.Players[name] = p.agg
	}
	// 합계는 이름 순서로 더한다 (float 합산 순서 고정)
	for _, name := range report.Names() {
		agg := report.Players[name]
		report.TotalTrafficKB += agg.TotalTrafficKB
		report.TotalDurationSeconds += agg.TotalDurationSeconds
	}

	return report
}

// time.Duration 으로 바꿀 수 있는 최대 초. 넘으면 login 을 합성하지 않는다.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// closeSession 은 logout 이벤트 하나로 세션을 만든다.
func closeSession(p *player, ev model.RawEvent) model.Session {
	logout := ev.Timestamp

	login, ok := p.pop()
	if ok && login.After(logout) {
		ok = false
	}
	if !ok {
		login = logout
		if d := ev.DurationSecondsFromLine; d != nil && *d <= maxDurationSeconds {
			login = logout.Add(-time.Duration(*d) * time.Second)
		}
	}

	duration := int64(logout.Sub(login).Round(time.Second) / time.Second)
	if ev.DurationSecondsFromLine != nil {
		duration = *ev.DurationSecondsFromLine
	}
	if duration < 0 {
		duration = 0
	}

	return model.Session{
		LoginTime:       login,
		LogoutTime:      logout,
		DurationSeconds: duration,
		TrafficKB:       ev.TrafficKB(),
	}
}
