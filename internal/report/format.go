// internal/report/format.go
package report

import (
	"strconv"
	"time"
)

// DateLayout 은 스냅샷/응답에 쓰이는 시각 표기 (YYYY/MM/DD HH:MM:SS).
const DateLayout = "2006/01/02 15:04:05"

func fixed3(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FormatKB → "2048.000 KB"
func FormatKB(kb float64) string { return fixed3(kb) + " KB" }

// FormatMB → "2.000 MB"
func FormatMB(mb float64) string { return fixed3(mb) + " MB" }

// FormatMinutes → "10.000 min"
func FormatMinutes(min float64) string { return fixed3(min) + " min" }

// FormatHours → "0.167 h"
func FormatHours(h float64) string { return fixed3(h) + " h" }

// FormatMBPerMinute → "0.200 MB/min"
func FormatMBPerMinute(v float64) string { return fixed3(v) + " MB/min" }

// FormatMBPerHour → "12.000 MB/hour"
func FormatMBPerHour(v float64) string { return fixed3(v) + " MB/hour" }

// FormatSeconds → "600 sec"
func FormatSeconds(sec int64) string { return strconv.FormatInt(sec, 10) + " sec" }

// FormatDate 는 t 를 그대로(자신의 location 기준) DateLayout 으로 표기한다.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }
