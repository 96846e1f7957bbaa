// internal/worker/coordinator.go
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"proxystat/internal/index"
	"proxystat/internal/model"
	"proxystat/internal/parser"
)

// Fetcher 는 URL 의 본문을 텍스트로 가져온다. (fetch.Client 가 구현)
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FileResult 는 로그 파일 하나의 fetch + parse 결과.
type FileResult struct {
	URL    string
	Label  string // URL path 의 base name (RawEvent.SourceFile 로 쓰인다)
	Events []model.RawEvent
	Err    error
}

// FetchAndParseAll
//
// urls 를 최대 maxConcurrency 개씩 동시에 받아서 파싱한다.
// 결과는 urls 와 같은 순서(index 정렬)로 반환되므로
// 완료 순서와 관계없이 merge 결과가 항상 같다.
//
//   - 각 goroutine 은 자기 slot(results[i]) 에만 쓴다 → 별도 lock 불필요
//   - 재시도 없음. 하나가 실패해도 나머지는 끝까지 진행 (sibling cancel 없음)
//   - ctx 가 취소되면 진행 중인 요청도 취소된다
func FetchAndParseAll(
	ctx context.Context,
	urls []string,
	maxConcurrency int,
	fetcher Fetcher,
	loc *time.Location,
) []FileResult {

	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	results := make([]FileResult, len(urls))

	var g errgroup.Group
	g.SetLimit(maxConcurrency)

	for i, u := range urls {
		results[i] = FileResult{URL: u, Label: index.BaseName(u)}

		g.Go(func() error {
			text, err := fetcher.Fetch(ctx, u)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Events = parser.ParseEvents(text, results[i].Label, loc)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// FirstError 는 listing 순서상 가장 앞선 실패의 에러를 URL 과 함께 반환한다.
// 실패가 없으면 nil.
func FirstError(results []FileResult) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("log file %s: %w", r.URL, r.Err)
		}
	}
	return nil
}

// MergeEvents 는 결과들의 이벤트를 URL 순서대로 하나의 slice 로 합친다.
func MergeEvents(results []FileResult) []model.RawEvent {
	n := 0
	for _, r := range results {
		n += len(r.Events)
	}

	out := make([]model.RawEvent, 0, n)
	for _, r := range results {
		out = append(out, r.Events...)
	}
	return out
}
