package pool

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// ---------------------------------------------------------------
// Pool 구성 목적
//
// 계산 1회마다 로그 파일 수십 개를 내려받아 읽고,
// 결과 스냅샷을 JSON 으로 쓰고 gzip 으로 한 번 더 압축한다.
// 버퍼/gzip writer 를 재사용해 계산이 몰릴 때의 할당을 줄인다.
// ---------------------------------------------------------------

var (
	// BufferPool:
	//   - 로그 파일 본문 읽기, 스냅샷 인코딩, gzip 결과에 공용으로 쓰는 버퍼
	//   - 초기 용량 256KB (일반적인 일 단위 로그 파일 크기)
	//   - MaxBufferCap 초과 버퍼는 풀에 넣지 않음
	BufferPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 256*1024))
		},
	}

	// GzipPool:
	//   - gzip.Writer 재사용 (매번 new 하면 비용이 큼)
	//   - 아카이브 업로드용이므로 BestSpeed
	GzipPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
			return w
		},
	}
)

// Pool 에 되돌려줄 최대 버퍼 용량.
// 이보다 큰 버퍼는 GC 에 맡긴다.
const MaxBufferCap = 4 * 1024 * 1024 // 4MB

// GetBuffer 는 비워진 버퍼를 꺼낸다.
func GetBuffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer:
//   - MaxBufferCap 이하이면 풀에 재사용
//   - 초대형 로그 파일을 읽은 버퍼는 풀로 돌리지 않음
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= MaxBufferCap {
		buf.Reset()
		BufferPool.Put(buf)
	}
}
