// internal/worker/store.go
package worker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrInvalidName: 다운로드 요청 파일명이 규칙에 맞지 않음 (경로 구분자, 확장자).
	ErrInvalidName = errors.New("invalid snapshot file name")

	// ErrNotFound: 스냅샷 파일이 없음.
	ErrNotFound = errors.New("snapshot not found")
)

// maxNameAttempts 는 같은 초에 만들어진 파일이 이만큼 있으면 포기한다.
const maxNameAttempts = 1000

// Store 는 계산 결과 스냅샷을 로컬 디렉토리에 저장하고 찾는다.
// 로컬 파일이 system of record 이며, S3 아카이브는 사본이다.
type Store struct {
	dir string
}

// NewStore 는 디렉토리가 없으면 만든다.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir 은 저장 디렉토리 경로.
func (s *Store) Dir() string { return s.dir }

// Save
//
// name 으로 data 를 저장하고 실제 사용한 파일명을 반환한다.
// 같은 이름이 이미 있으면 "_1", "_2", ... suffix 를 붙인다.
// O_EXCL 로 만들기 때문에 동시에 저장해도 기존 파일을 덮어쓰지 않는다.
func (s *Store) Save(name string, data []byte) (string, error) {
	candidate := name

	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		path := filepath.Join(s.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			candidate = withCounter(name, attempt)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create snapshot %s: %w", candidate, err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write snapshot %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("close snapshot %s: %w", candidate, err)
		}
		return candidate, nil
	}

	return "", fmt.Errorf("create snapshot %s: no free name after %d attempts", name, maxNameAttempts)
}

// Latest
//
// 가장 최근 스냅샷 파일명을 반환한다. 없으면 "" (에러 아님).
//
// 정렬 기준:
//   - 규칙에 맞는 이름: (시각, counter) 순. "_10" 이 "_2" 보다 뒤.
//   - 규칙에 맞지 않는 .json: 문자열 순으로 규칙 이름들보다 앞에 둔다.
//
// 디렉토리가 아직 없으면 "" 를 반환한다.
func (s *Store) Latest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read data dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		files = append(files, name)
	}
	if len(files) == 0 {
		return "", nil
	}

	sort.Slice(files, func(i, j int) bool {
		return snapshotLess(files[i], files[j])
	})
	return files[len(files)-1], nil
}

func snapshotLess(a, b string) bool {
	sa, ca, okA := splitSnapshotName(a)
	sb, cb, okB := splitSnapshotName(b)

	switch {
	case okA && okB:
		if sa != sb {
			return sa < sb
		}
		return ca < cb
	case okA != okB:
		return !okA
	default:
		return a < b
	}
}

// SanitizeName
//
// 다운로드 요청 파일명을 검증한다.
//   - 비어 있으면 안 됨
//   - "/" 또는 "\" 포함 금지 (디렉토리 탈출 방지)
//   - ".json" 으로 끝나야 함
func SanitizeName(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || !strings.HasSuffix(name, snapshotExt) {
		return "", ErrInvalidName
	}
	return name, nil
}

// Open
//
// 검증된 파일명의 스냅샷을 연다. 호출자가 Close 해야 한다.
// 디렉토리이거나 없으면 ErrNotFound.
func (s *Store) Open(name string) (*os.File, fs.FileInfo, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot %s: %w", clean, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat snapshot %s: %w", clean, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	return f, info, nil
}
