package worker

import (
	"proxystat/internal/pool"
	"proxystat/internal/report"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// Encoder 는 계산 결과를 저장/아카이브용 바이트로 직렬화하는 컴포넌트.
//
// 특징:
//   - goccy/go-json 기반 JSON 인코딩 (2칸 들여쓰기)
//   - gzip.Writer + bytes.Buffer 재사용(pool 기반)
//   - 결과는 새로운 []byte 로 복사해 호출자에게 소유권을 넘김
//     (pool 버퍼를 그대로 반환하면 데이터 corruption 위험)
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodeSnapshot 은 Document 를 사람이 읽을 수 있는 JSON 으로 인코딩한다.
func (e *Encoder) EncodeSnapshot(doc report.Document) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(doc); err != nil {
		return nil, err
	}

	return copyBytes(buf.Bytes()), nil
}

// CompressGZ 는 스냅샷 바이트를 gzip 으로 압축한다 (S3 아카이브용).
func (e *Encoder) CompressGZ(data []byte) ([]byte, error) {

	// ------------------------------------------------------------
	// 1) 결과 버퍼 / gzip.Writer 를 pool 에서 가져온다.
	// ------------------------------------------------------------
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	gz := pool.GzipPool.Get().(*gzip.Writer)
	defer pool.GzipPool.Put(gz)
	gz.Reset(buf)

	// ------------------------------------------------------------
	// 2) 압축 후 Close 로 footer 까지 flush
	// ------------------------------------------------------------
	if _, err := gz.Write(data); err != nil {
		_ = gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	// ------------------------------------------------------------
	// 3) pool 버퍼는 재사용되므로 복사해서 반환
	// ------------------------------------------------------------
	return copyBytes(buf.Bytes()), nil
}

func copyBytes(raw []byte) []byte {
	data := make([]byte, len(raw))
	copy(data, raw)
	return data
}
