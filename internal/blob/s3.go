// Package blob mirrors completed conversion outputs to S3-compatible
// storage (AWS S3 or Cloudflare R2) through a bounded upload queue.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/trunov/converthub/internal/config"
)

var ErrQueueFull = errors.New("upload queue is full")

type uploadReq struct {
	ctx     context.Context
	key     string
	payload []byte
}

type Mirror struct {
	bucket string

	workers        int
	queueSize      int
	maxRetries     int
	retryBaseDelay time.Duration

	queue chan uploadReq
	wg    sync.WaitGroup

	client   *s3.Client
	uploader *manager.Uploader

	readFile func(string) ([]byte, error)
}

func NewMirror(cfg *config.S3Config) (*Mirror, error) {
	m := &Mirror{
		bucket:         cfg.BucketName,
		workers:        8,
		queueSize:      1000,
		maxRetries:     3,
		retryBaseDelay: 300 * time.Millisecond,
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretKey, "",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	m.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	m.uploader = manager.NewUploader(m.client)

	m.queue = make(chan uploadReq, m.queueSize)
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}

	log.Printf("[blob] mirror client + worker pool initialized (bucket=%s)", m.bucket)
	return m, nil
}

// Close waits for all queued uploads to drain.
func (m *Mirror) Close() {
	close(m.queue)
	m.wg.Wait()
}

// MirrorFile queues the file at path for upload under key without blocking.
// A full queue returns ErrQueueFull immediately.
func (m *Mirror) MirrorFile(ctx context.Context, key, path string) error {
	readFile := m.readFile
	if readFile == nil {
		readFile = defaultReadFile
	}
	payload, err := readFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	req := uploadReq{ctx: ctx, key: key, payload: payload}
	select {
	case m.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for req := range m.queue {
		attempt := 0
		for {
			attempt++
			_, err := m.uploader.Upload(req.ctx, &s3.PutObjectInput{
				Bucket: aws.String(m.bucket),
				Key:    aws.String(req.key),
				Body:   bytes.NewReader(req.payload),
			})
			if err == nil {
				break
			}
			if attempt > m.maxRetries {
				log.Printf("[blob] giving up on %q after %d attempts: %v", req.key, attempt, err)
				break
			}

			backoff := m.backoffDelay(attempt)
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-req.ctx.Done():
				timer.Stop()
			}
			if req.ctx != nil && req.ctx.Err() != nil {
				break
			}
		}
	}
}

func (m *Mirror) backoffDelay(attempt int) time.Duration {
	delay := m.retryBaseDelay << (attempt - 1)
	jitter := time.Duration(int64(delay) / 10)
	return delay - (jitter / 2) + time.Duration(int64(jitter)*time.Now().UnixNano()%2)
}

func defaultReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
