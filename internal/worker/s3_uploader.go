// internal/worker/s3_uploader.go
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"proxystat/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver 는 스냅샷 사본을 외부 저장소로 보내는 구성 요소.
// Calculator 는 이 인터페이스만 알고, 테스트에서는 fake 로 바꾼다.
type Archiver interface {
	Upload(ctx context.Context, key string, body []byte, runID string) error
}

// putObjectAPI 는 S3 client 에서 실제로 쓰는 메서드만 뽑은 인터페이스.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader 는 gzip 스냅샷을 S3 로 업로드한다.
//   - 업로드 1회당 timeout (ArchiveConfig.Timeout)
//   - 재시도 + exponential backoff (200ms 부터 2배, 최대 2초)
//   - SDK 자체 retry 는 0 (재시도 횟수는 ArchiveConfig.Retries 만 사용)
type S3Uploader struct {
	cfg    config.ArchiveConfig
	client putObjectAPI
}

// NewS3Uploader 는 AWS 기본 credential chain 으로 S3 client 를 만든다.
// region 이 비어 있으면 SDK 기본값(AWS_REGION 등)을 따른다.
func NewS3Uploader(ctx context.Context, cfg config.ArchiveConfig) (*S3Uploader, error) {
	var opts []func(*awsCfgLib.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsCfgLib.WithRegion(cfg.Region))
	}

	awsCfg, err := awsCfgLib.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 0
	})

	return newS3UploaderWithClient(cfg, client), nil
}

func newS3UploaderWithClient(cfg config.ArchiveConfig, client putObjectAPI) *S3Uploader {
	return &S3Uploader{cfg: cfg, client: client}
}

// Upload
// -----------------------
// 메모리에 있는 gzip 바이트를 S3 로 업로드한다.
// 시도 횟수는 1 + Retries.
// ctx.Done() 시 즉시 중단.
//
// body 는 매 재시도마다 reader 를 새로 만들어야 하므로 bytes.NewReader 사용.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, runID string) error {
	var lastErr error
	backoff := 200 * time.Millisecond
	attempts := 1 + u.cfg.Retries

	for attempt := 1; attempt <= attempts; attempt++ {

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := u.putObject(ctx, key, bytes.NewReader(body), int64(len(body)), runID)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		// backoff 적용 (최대 2초)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}
	}

	return fmt.Errorf("upload s3://%s/%s after %d attempts: %w", u.cfg.Bucket, key, attempts, lastErr)
}

// putObject
// ---------
// PutObject 1회 호출. retry 는 caller 가 제어한다.
func (u *S3Uploader) putObject(
	ctx context.Context,
	key string,
	body io.Reader,
	size int64,
	runID string,
) error {

	ctx2, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	_, err := u.client.PutObject(ctx2, &s3.PutObjectInput{
		Bucket:          aws.String(u.cfg.Bucket),
		Key:             aws.String(key),
		Body:            body,
		ContentLength:   aws.Int64(size),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
		Metadata:        map[string]string{"run-id": runID},
	})

	return err
}
