package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxystat/internal/model"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func login(name string, ts time.Time) model.ResolvedEvent {
	return model.ResolvedEvent{
		RawEvent:   model.RawEvent{Timestamp: ts, Action: model.ActionLogin, SourceFile: "a.log"},
		PlayerName: name,
	}
}

func logout(name string, ts time.Time, dur *int64, traffic *float64) model.ResolvedEvent {
	return model.ResolvedEvent{
		RawEvent: model.RawEvent{
			Timestamp:               ts,
			Action:                  model.ActionLogout,
			SourceFile:              "a.log",
			DurationSecondsFromLine: dur,
			TrafficKBFromLine:       traffic,
		},
		PlayerName: name,
	}
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func TestAggregate_PairsByTimestampDelta(t *testing.T) {
	r := Aggregate([]model.ResolvedEvent{
		login("Alice", at(0)),
		logout("Alice", at(754), nil, f64(100)),
	}, t0)

	p := r.Players["Alice"]
	require.NotNil(t, p)
	require.Len(t, p.Sessions, 1)
	assert.Equal(t, int64(754), p.Sessions[0].DurationSeconds)
	assert.Equal(t, at(0), p.Sessions[0].LoginTime)
	assert.Equal(t, 100.0, p.TotalTrafficKB)
}

func TestAggregate_ExplicitDurationWins(t *testing.T) {
	r := Aggregate([]model.ResolvedEvent{
		login("Alice", at(0)),
		logout("Alice", at(100), i64(42), nil),
	}, t0)

	s := r.Players["Alice"].Sessions[0]
	assert.Equal(t, int64(42), s.DurationSeconds)
	assert.Equal(t, at(0), s.LoginTime)
	assert.Equal(t, 0.0, s.TrafficKB)
}

func TestAggregate_OrphanLogout(t *testing.T) {
	r := Aggregate([]model.ResolvedEvent{
		logout("Bob", at(50), nil, nil),
		logout("Carol", at(600), i64(300), f64(1)),
	}, t0)

	bob := r.Players["Bob"].Sessions[0]
	assert.Equal(t, int64(0), bob.DurationSeconds)
	assert.Equal(t, at(50), bob.LoginTime)
	assert.Equal(t, at(50), bob.LogoutTime)

	// duration 이 있으면 login 을 역산한다
	carol := r.Players["Carol"].Sessions[0]
	assert.Equal(t, int64(300), carol.DurationSeconds)
	assert.Equal(t, at(300), carol.LoginTime)
}

func TestAggregate_LIFOPairing(t *testing.T) {
	r := Aggregate([]model.ResolvedEvent{
		login("Dan", at(0)),
		login("Dan", at(100)),
		logout("Dan", at(150), nil, nil),
		logout("Dan", at(400), nil, nil),
	}, t0)

	s := r.Players["Dan"].Sessions
	require.Len(t, s, 2)
	assert.Equal(t, int64(50), s[0].DurationSeconds)  // 가장 가까운 login(100) 과 짝
	assert.Equal(t, int64(400), s[1].DurationSeconds) // 남은 login(0) 과 짝
	assert.Equal(t, int64(450), r.Players["Dan"].TotalDurationSeconds)
}

func TestAggregate_UnmatchedLoginProducesNoSession(t *testing.T) {
	r := Aggregate([]model.ResolvedEvent{login("Eve", at(0))}, t0)
	require.Contains(t, r.Players, "Eve")
	assert.Empty(t, r.Players["Eve"].Sessions)
	assert.Zero(t, r.Players["Eve"].AverageSpeed())
}

func TestAggregate_SortsUnorderedInput(t *testing.T) {
	events := []model.ResolvedEvent{
		logout("Fay", at(60), nil, nil),
		login("Fay", at(0)),
	}
	r := Aggregate(events, t0)
	assert.Equal(t, int64(60), r.Players["Fay"].Sessions[0].DurationSeconds)

	// 입력 slice 는 그대로
	assert.Equal(t, model.ActionLogout, events[0].Action)
}

func TestAggregate_TotalsAndSpeed(t *testing.T) {
	r := Aggregate([]model.ResolvedEvent{
		login("A", at(0)),
		logout("A", at(60), nil, f64(1024)), // 1 MB / 1 min
		login("B", at(0)),
		logout("B", at(120), nil, f64(4096)), // 4 MB / 2 min
		logout("C", at(10), nil, f64(512)),   // 0 초
	}, t0)

	assert.Equal(t, []string{"A", "B", "C"}, r.Names())
	assert.Equal(t, 1.0, r.Players["A"].AverageSpeed())
	assert.Equal(t, 2.0, r.Players["B"].AverageSpeed())
	assert.Equal(t, 0.0, r.Players["C"].AverageSpeed())

	assert.Equal(t, 5632.0, r.TotalTrafficKB)
	assert.Equal(t, int64(180), r.TotalDurationSeconds)
	assert.InDelta(t, 5.5/(180.0/3600), r.AverageSpeed(), 1e-9)
	assert.Equal(t, 3, r.SessionCount())
	assert.Equal(t, t0, r.CalculationDate)
}

func TestAggregate_UUIDFirstNonEmpty(t *testing.T) {
	a := login("G", at(0))
	b := logout("G", at(1), nil, nil)
	b.PlayerUUID = "g-1"
	c := login("G", at(2))
	c.PlayerUUID = "g-2"

	r := Aggregate([]model.ResolvedEvent{a, b, c}, t0)
	assert.Equal(t, "g-1", r.Players["G"].UUID)
}

func TestSortEvents_TieBreak(t *testing.T) {
	events := []model.RawEvent{
		{Timestamp: at(5), SourceFile: "b.log", LineNumber: 1},
		{Timestamp: at(5), SourceFile: "a.log", LineNumber: 9},
		{Timestamp: at(5), SourceFile: "a.log", LineNumber: 2},
		{Timestamp: at(1), SourceFile: "z.log", LineNumber: 7},
	}
	SortEvents(events)

	assert.Equal(t, "z.log", events[0].SourceFile)
	assert.Equal(t, 2, events[1].LineNumber)
	assert.Equal(t, 9, events[2].LineNumber)
	assert.Equal(t, "b.log", events[3].SourceFile)
}

func TestAggregate_SameSecondAcrossFiles(t *testing.T) {
	// 같은 시각이지만 tie-break 로 logout(a.log:1) 이 login(b.log:1) 보다 먼저 처리된다.
	// 이후 login 은 pending 으로 남고 두 번째 logout 과 짝지어진다.
	in := login("H", at(10))
	in.SourceFile = "b.log"
	out1 := logout("H", at(10), nil, nil)
	out1.LineNumber = 1
	out2 := logout("H", at(70), nil, nil)
	out2.SourceFile = "c.log"

	r := Aggregate([]model.ResolvedEvent{in, out1, out2}, t0)
	s := r.Players["H"].Sessions
	require.Len(t, s, 2)
	assert.Equal(t, int64(0), s[0].DurationSeconds)
	assert.Equal(t, int64(60), s[1].DurationSeconds)
}

func TestCloseSession_LoginAfterLogout(t *testing.T) {
	p := &player{agg: &model.PlayerAggregate{}}
	p.push(at(100))

	s := closeSession(p, model.RawEvent{Timestamp: at(50), Action: model.ActionLogout, DurationSecondsFromLine: i64(20)})
	assert.Equal(t, at(30), s.LoginTime)
	assert.Equal(t, int64(20), s.DurationSeconds)
	assert.Empty(t, p.pending)

	p.push(at(100))
	s = closeSession(p, model.RawEvent{Timestamp: at(50), Action: model.ActionLogout})
	assert.Equal(t, at(50), s.LoginTime)
	assert.Equal(t, int64(0), s.DurationSeconds)
}

func TestCloseSession_DurationBeyondTimeRange(t *testing.T) {
	p := &player{agg: &model.PlayerAggregate{}}

	// 합성 login 을 만들 수 없으면 logout 시각에 둔다. duration 은 라인 값 그대로.
	s := closeSession(p, model.RawEvent{Timestamp: t0, Action: model.ActionLogout, DurationSecondsFromLine: i64(10_800_000_000)})
	assert.Equal(t, t0, s.LoginTime)
	assert.Equal(t, int64(10_800_000_000), s.DurationSeconds)
	assert.False(t, s.LoginTime.After(s.LogoutTime))

	// 표현 가능한 최대값은 그대로 합성
	s = closeSession(p, model.RawEvent{Timestamp: t0, Action: model.ActionLogout, DurationSecondsFromLine: i64(maxDurationSeconds)})
	assert.Equal(t, t0.Add(-time.Duration(maxDurationSeconds)*time.Second), s.LoginTime)
	assert.True(t, s.LoginTime.Before(s.LogoutTime))
}
