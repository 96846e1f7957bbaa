package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapFetcher 는 URL → 본문/에러 를 돌려주는 fake. 동시 실행 수도 기록한다.
type mapFetcher struct {
	bodies map[string]string
	errs   map[string]error
	delay  map[string]time.Duration

	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (f *mapFetcher) Fetch(ctx context.Context, url string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if d := f.delay[url]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.errs[url]; err != nil {
		return "", err
	}
	return f.bodies[url], nil
}

func line(hhmmss, name string) string {
	return fmt.Sprintf("[2024-05-01] [%s] [Player] Player %s uuid:u-%s logged in from /x\n", hhmmss, name, name)
}

func TestFetchAndParseAll_IndexAlignedResults(t *testing.T) {
	urls := []string{"http://h/logs/a.log", "http://h/logs/b.log", "http://h/logs/c.log"}
	f := &mapFetcher{
		bodies: map[string]string{
			urls[0]: line("10-00-00", "A"),
			urls[1]: line("09-00-00", "B") + line("09-00-01", "B"),
			urls[2]: "",
		},
		// 앞 파일이 늦게 끝나도 결과 순서는 그대로
		delay: map[string]time.Duration{urls[0]: 30 * time.Millisecond},
	}

	results := FetchAndParseAll(context.Background(), urls, 3, f, time.UTC)
	require.Len(t, results, 3)

	assert.Equal(t, urls[0], results[0].URL)
	assert.Equal(t, "a.log", results[0].Label)
	assert.Len(t, results[0].Events, 1)
	assert.Equal(t, "a.log", results[0].Events[0].SourceFile)

	assert.Len(t, results[1].Events, 2)
	assert.Empty(t, results[2].Events)
	assert.NoError(t, FirstError(results))

	merged := MergeEvents(results)
	require.Len(t, merged, 3)
	assert.Equal(t, "A", merged[0].NameRaw)
	assert.Equal(t, "B", merged[1].NameRaw)
}

func TestFetchAndParseAll_RespectsLimit(t *testing.T) {
	urls := make([]string, 10)
	delay := make(map[string]time.Duration, len(urls))
	for i := range urls {
		urls[i] = fmt.Sprintf("http://h/%02d.log", i)
		delay[urls[i]] = 10 * time.Millisecond
	}
	f := &mapFetcher{delay: delay}

	results := FetchAndParseAll(context.Background(), urls, 2, f, time.UTC)
	assert.Len(t, results, 10)
	assert.LessOrEqual(t, f.maxSeen.Load(), int32(2))
	assert.Len(t, f.calls, 10)
}

func TestFetchAndParseAll_NoSiblingCancellation(t *testing.T) {
	urls := []string{"http://h/a.log", "http://h/b.log", "http://h/c.log"}
	boom := errors.New("boom")
	f := &mapFetcher{
		bodies: map[string]string{urls[2]: line("10-00-00", "C")},
		errs:   map[string]error{urls[0]: boom},
		delay:  map[string]time.Duration{urls[2]: 20 * time.Millisecond},
	}

	results := FetchAndParseAll(context.Background(), urls, 1, f, time.UTC)

	assert.Len(t, f.calls, 3)
	assert.Len(t, results[2].Events, 1)
	assert.ErrorIs(t, results[0].Err, boom)
}

func TestFirstError_LowestIndexWins(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	err := FirstError([]FileResult{
		{URL: "u0"},
		{URL: "u1", Err: first},
		{URL: "u2", Err: second},
	})

	require.ErrorIs(t, err, first)
	assert.Contains(t, err.Error(), "u1")
}

func TestFetchAndParseAll_ZeroLimitTreatedAsOne(t *testing.T) {
	f := &mapFetcher{}
	results := FetchAndParseAll(context.Background(), []string{"http://h/a.log"}, 0, f, time.UTC)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}
