// internal/worker/file_util.go
package worker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// file_util.go
// ------------------------------------------------------------
// 스냅샷 파일명 / S3 key 규칙.
//
// 파일명 규칙:
//
//	<YYYY_MM_DD_HH_MM_SS>[_<N>].json
//
// 예:
//
//	2024_05_01_10_00_00.json
//	2024_05_01_10_00_00_1.json   (같은 초에 두 번째 계산)
//
// 계산 시각(설정된 timezone) 기준이므로 파일명만으로 언제 계산했는지 알 수 있다.

const (
	snapshotLayout = "2006_01_02_15_04_05"
	snapshotExt    = ".json"
)

// SnapshotName 은 계산 시각으로 기본 파일명을 만든다 (suffix 없음).
func SnapshotName(t time.Time) string {
	return t.Format(snapshotLayout) + snapshotExt
}

// withCounter 는 "<base>_<n>.json" 형태로 suffix 를 붙인다.
func withCounter(name string, n int) string {
	base := strings.TrimSuffix(name, snapshotExt)
	return base + "_" + strconv.Itoa(n) + snapshotExt
}

// splitSnapshotName
// ------------------------------------------------------------
// "2024_05_01_10_00_00_3.json" → ("2024_05_01_10_00_00", 3, true)
// "2024_05_01_10_00_00.json"   → ("2024_05_01_10_00_00", 0, true)
//
// 규칙에 맞지 않는 이름은 ok=false. (사용자가 직접 넣어둔 .json 등)
func splitSnapshotName(name string) (stamp string, counter int, ok bool) {
	base, found := strings.CutSuffix(name, snapshotExt)
	if !found || len(base) < len(snapshotLayout) {
		return "", 0, false
	}

	stamp = base[:len(snapshotLayout)]
	if _, err := time.Parse(snapshotLayout, stamp); err != nil {
		return "", 0, false
	}

	rest := base[len(snapshotLayout):]
	if rest == "" {
		return stamp, 0, true
	}
	if rest[0] != '_' {
		return "", 0, false
	}
	n, err := strconv.Atoi(rest[1:])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return stamp, n, true
}

// BuildS3Key
// ------------------------------------------------------------
// 아카이브 S3 Key 생성기.
//
//	<prefix>/dt=<YYYY-MM-DD>/<filename>.gz
//
// 날짜 파티션은 계산 시각 기준. Athena / Glue 파티션 스캔용 표준 구조.
func BuildS3Key(prefix string, calculatedAt time.Time, filename string) string {
	prefix = strings.Trim(prefix, "/")
	dt := calculatedAt.Format("2006-01-02")
	if prefix == "" {
		return fmt.Sprintf("dt=%s/%s.gz", dt, filename)
	}
	return fmt.Sprintf("%s/dt=%s/%s.gz", prefix, dt, filename)
}
