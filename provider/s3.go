package provider

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ensure interface is implemented
var _ Provider = (*S3Provider)(nil)

// S3Provider places downloaded assets directly into an S3 bucket
// instead of on local disk.
type S3Provider struct {
	client   *s3.Client
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// NewS3Provider creates a provider for the given bucket and key prefix,
// using the ambient AWS configuration.
func NewS3Provider(ctx context.Context, bucket, prefix string) (*S3Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Provider{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

// buildKey constructs the full S3 key under the provider's prefix.
func (p *S3Provider) buildKey(subPath string) string {
	subPath = strings.TrimPrefix(filepath.ToSlash(subPath), "/")
	if p.prefix == "" {
		return subPath
	}
	key := path.Join(p.prefix, subPath)
	return strings.TrimPrefix(key, "/")
}

// EnsureDir writes a zero-byte placeholder object ending in '/'. S3 has
// no true directories; the placeholder keeps listing tools happy.
func (p *S3Provider) EnsureDir(ctx context.Context, pth string) error {
	key := p.buildKey(pth)
	if key == "" {
		return nil
	}
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return fmt.Errorf("failed to write directory placeholder %q: %w", key, err)
	}
	return nil
}

// OpenWrite streams a file into the bucket through the transfer
// manager, behind a pipe so the caller sees an ordinary writer.
func (p *S3Provider) OpenWrite(ctx context.Context, pth string) (io.WriteCloser, error) {
	key := p.buildKey(pth)

	pr, pw := io.Pipe()
	errChan := make(chan error, 1)

	go func() {
		_, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		pr.CloseWithError(err)
		errChan <- err
	}()

	return &asyncS3Writer{pw: pw, errChan: errChan}, nil
}

type asyncS3Writer struct {
	pw      *io.PipeWriter
	errChan <-chan error
}

func (w *asyncS3Writer) Write(p []byte) (n int, err error) {
	return w.pw.Write(p)
}

func (w *asyncS3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	// Wait for upload to complete
	if err := <-w.errChan; err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}
