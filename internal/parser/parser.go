// internal/parser/parser.go
package parser

import (
	"math"
	"strconv"
	"strings"
	"time"

	"proxystat/internal/model"
)

// ParseEvents
//
// 로그 텍스트 전체를 한 줄씩 읽어 login/logout 이벤트 목록으로 변환한다.
//
//   - 라인 순서 유지, LineNumber 는 1부터
//   - 문법에 맞지 않는 라인은 조용히 건너뛴다 (로그에는 플레이어와 무관한
//     라인이 섞여 있는 것이 정상이므로 에러가 아니다)
//   - 타임스탬프는 loc 기준으로 해석한다 (nil 이면 time.Local)
//
// fileLabel 은 RawEvent.SourceFile 로 그대로 기록된다.
func ParseEvents(text, fileLabel string, loc *time.Location) []model.RawEvent {
	if loc == nil {
		loc = time.Local
	}

	lines := strings.Split(text, "\n")
	events := make([]model.RawEvent, 0, len(lines)/4)

	for i, line := range lines {
		ev, ok := ParseLine(strings.TrimSuffix(line, "\r"), loc)
		if !ok {
			continue
		}
		ev.SourceFile = fileLabel
		ev.LineNumber = i + 1
		events = append(events, ev)
	}

	return events
}

// ParseLine parses a single line. ok is false when the line does not match
// the player event grammar.
func ParseLine(line string, loc *time.Location) (model.RawEvent, bool) {
	m := basePattern.FindStringSubmatch(line)
	if m == nil {
		return model.RawEvent{}, false
	}

	ts, ok := parseTimestamp(m[1], m[2], m[3], m[4], loc)
	if !ok {
		return model.RawEvent{}, false
	}

	ev := model.RawEvent{
		Timestamp: ts,
		NameRaw:   strings.TrimSpace(m[5]),
		UUIDRaw:   strings.TrimSpace(m[6]),
		Action:    model.ActionLogin,
	}

	if strings.EqualFold(m[7], "out") {
		ev.Action = model.ActionLogout

		var traffic float64
		if d := detailPattern.FindStringSubmatch(line); d != nil {
			if secs, ok := parseDurationSeconds(d[1]); ok {
				ev.DurationSecondsFromLine = &secs
			}
			traffic = parseTrafficKB(d[2], d[3])
		}
		ev.TrafficKBFromLine = &traffic
	}

	return ev, true
}

// parseTimestamp 는 "YYYY-MM-DD" + HH, MM, SS 를 loc 기준 시각으로 만든다.
// time.Date 는 범위를 넘는 값을 정규화해버리므로 (13월 → 다음 해 1월)
// 먼저 범위를 검사하고 벗어나면 문법 불일치로 취급한다.
func parseTimestamp(datePart, hh, mm, ss string, loc *time.Location) (time.Time, bool) {
	d, err := time.ParseInLocation("2006-01-02", datePart, loc)
	if err != nil {
		return time.Time{}, false
	}

	h, _ := strconv.Atoi(hh)
	mi, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	if h > 23 || mi > 59 || s > 59 {
		return time.Time{}, false
	}

	return time.Date(d.Year(), d.Month(), d.Day(), h, mi, s, 0, loc), true
}

// MaxDurationSeconds 는 time.Duration 으로 표현 가능한 최대 초.
// 이보다 큰 duration 은 라인에 없는 것으로 취급한다.
const MaxDurationSeconds = math.MaxInt64 / int64(time.Second)

// parseDurationSeconds
//
// "10 minutes", "1.5 hours", "42 second" → 정수 초 (반올림).
// 숫자나 단위를 해석할 수 없거나 MaxDurationSeconds 를 넘으면
// ok=false (duration 미기록으로 취급).
func parseDurationSeconds(text string) (int64, bool) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "hour"):
		v *= 3600
	case strings.HasPrefix(unit, "minute"):
		v *= 60
	}

	v = math.Round(v)
	if math.IsInf(v, 0) || math.IsNaN(v) || v > float64(MaxDurationSeconds) {
		return 0, false
	}
	return int64(v), true
}

// parseTrafficKB 는 KB/MB/GB 값을 KB 로 환산한다 (1024 배수).
// 숫자 해석 실패 시 0.
func parseTrafficKB(value, unit string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	switch strings.ToUpper(unit) {
	case "GB":
		return v * 1024 * 1024
	case "MB":
		return v * 1024
	default:
		return v
	}
}
