// internal/report/report.go
package report

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"

	"proxystat/internal/model"
)

// Document
// ------------------------------------------------------------
// 스냅샷 파일(JSON)에 그대로 저장되는 문서 구조.
//
//	{"proxy_data": {"player_data": {...}, "proxy_total_traffic": "...", ...}}
//
// 모든 수치는 소수점 3자리 고정 + 단위 문자열로 표기한다.
type Document struct {
	ProxyData ProxyData `json:"proxy_data"`
}

type ProxyData struct {
	PlayerData           PlayerData `json:"player_data"`
	ProxyTotalTraffic    string     `json:"proxy_total_traffic"`
	ProxyTotalOnlineTime string     `json:"proxy_total_online_time"`
	ProxyAverageSpeed    string     `json:"proxy_average_speed"`
	CalculationDate      string     `json:"calculation_date"`
}

// PlayerEntry 는 player_data 의 값 하나.
type PlayerEntry struct {
	UUID            string     `json:"uuid"`
	OnlineData      OnlineData `json:"online_data"`
	TotalTraffic    string     `json:"total_traffic"`
	TotalOnlineTime string     `json:"total_online_time"`
	AverageSpeed    string     `json:"average_speed"`
}

// SessionEntry 는 online_data 의 값 하나.
type SessionEntry struct {
	LoginTime  string `json:"login_time"`
	LogoutTime string `json:"logout_time"`
	Duration   string `json:"duration"`
	Traffic    string `json:"traffic"`
}

// NamedPlayer 는 player_data 의 (key, value) 쌍.
type NamedPlayer struct {
	Name  string
	Entry PlayerEntry
}

// PlayerData
//
// JSON object 로 직렬화되지만 key 순서를 보존해야 하므로 slice 로 들고 있다.
// (map 으로 두면 encoder 가 key 를 다시 정렬한다)
type PlayerData []NamedPlayer

func (d PlayerData) MarshalJSON() ([]byte, error) {
	return marshalOrdered(len(d), func(i int) (string, any) {
		return d[i].Name, d[i].Entry
	})
}

// OnlineData
//
// {"1": {...}, "2": {...}, ..., "10": {...}} 형태.
// map[string] 으로 직렬화하면 "1","10","2" 순서가 되어버리므로 직접 쓴다.
type OnlineData []SessionEntry

func (d OnlineData) MarshalJSON() ([]byte, error) {
	return marshalOrdered(len(d), func(i int) (string, any) {
		return strconv.Itoa(i + 1), d[i]
	})
}

// marshalOrdered 는 키 순서를 유지한 JSON object 를 만든다.
// 플레이어 이름의 <, >, & 가 그대로 남도록 HTML escape 는 하지 않는다.
func marshalOrdered(n int, at func(i int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, val := at(i)

		kb, err := json.MarshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		vb, err := json.MarshalNoEscape(val)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PlayerTotal 은 결과 테이블 한 줄 (API 응답용 요약).
type PlayerTotal struct {
	PlayerName      string `json:"player_name"`
	TotalTraffic    string `json:"total_traffic"`
	TotalOnlineTime string `json:"total_online_time"`
	AverageSpeed    string `json:"average_speed"`
}

// Summary 는 계산 API 응답에 실리는 플레이어별 요약 + 전체 합계.
type Summary struct {
	PlayerTotals         []PlayerTotal `json:"player_totals"`
	ProxyTotalTraffic    string        `json:"proxy_total_traffic"`
	ProxyTotalOnlineTime string        `json:"proxy_total_online_time"`
	ProxyAverageSpeed    string        `json:"proxy_average_speed"`
	CalculationDate      string        `json:"calculation_date"`
}

// Build
//
// ProxyReport 를 저장용 Document 로 변환한다.
// 플레이어는 이름 순, 세션은 처리 순서 그대로.
//
// 단위:
//   - 플레이어 합계: MB / min / MB/min
//   - 전체 합계: MB / h / MB/hour
//   - 세션: sec / KB
func Build(r *model.ProxyReport) Document {
	names := r.Names()
	players := make(PlayerData, 0, len(names))

	for _, name := range names {
		p := r.Players[name]

		online := make(OnlineData, 0, len(p.Sessions))
		for _, s := range p.Sessions {
			online = append(online, SessionEntry{
				LoginTime:  FormatDate(s.LoginTime),
				LogoutTime: FormatDate(s.LogoutTime),
				Duration:   FormatSeconds(s.DurationSeconds),
				Traffic:    FormatKB(s.TrafficKB),
			})
		}

		players = append(players, NamedPlayer{
			Name: name,
			Entry: PlayerEntry{
				UUID:            p.UUID,
				OnlineData:      online,
				TotalTraffic:    FormatMB(p.TotalTrafficKB / 1024),
				TotalOnlineTime: FormatMinutes(float64(p.TotalDurationSeconds) / 60),
				AverageSpeed:    FormatMBPerMinute(p.AverageSpeed()),
			},
		})
	}

	return Document{
		ProxyData: ProxyData{
			PlayerData:           players,
			ProxyTotalTraffic:    FormatMB(r.TotalTrafficKB / 1024),
			ProxyTotalOnlineTime: FormatHours(float64(r.TotalDurationSeconds) / 3600),
			ProxyAverageSpeed:    FormatMBPerHour(r.AverageSpeed()),
			CalculationDate:      FormatDate(r.CalculationDate),
		},
	}
}

// Summarize 는 Document 에서 결과 테이블용 평탄화 목록을 뽑는다.
func Summarize(doc Document) Summary {
	pd := doc.ProxyData

	totals := make([]PlayerTotal, 0, len(pd.PlayerData))
	for _, p := range pd.PlayerData {
		totals = append(totals, PlayerTotal{
			PlayerName:      p.Name,
			TotalTraffic:    p.Entry.TotalTraffic,
			TotalOnlineTime: p.Entry.TotalOnlineTime,
			AverageSpeed:    p.Entry.AverageSpeed,
		})
	}

	return Summary{
		PlayerTotals:         totals,
		ProxyTotalTraffic:    pd.ProxyTotalTraffic,
		ProxyTotalOnlineTime: pd.ProxyTotalOnlineTime,
		ProxyAverageSpeed:    pd.ProxyAverageSpeed,
		CalculationDate:      pd.CalculationDate,
	}
}
