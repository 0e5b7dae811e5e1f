// Package publish copies rendered codes to object storage so they can be
// linked from outside the service.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/RobertPKyle/proofqr/qr"
)

const DefaultTimeout = 30 * time.Second

// Uploader is the part of manager.Uploader the publisher needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
	timeout  time.Duration
}

type S3Config struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	// Timeout in seconds, 0 means DefaultTimeout.
	Timeout int `json:"timeout"`
}

func NewS3Publisher(ctx context.Context, c S3Config) (*S3Publisher, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config, error: %v", err)
	}

	timeout := DefaultTimeout
	if c.Timeout > 0 {
		timeout = time.Duration(c.Timeout) * time.Second
	}
	return NewPublisher(manager.NewUploader(s3.NewFromConfig(cfg)), c.Bucket, c.Prefix, timeout), nil
}

func NewPublisher(uploader Uploader, bucket, prefix string, timeout time.Duration) *S3Publisher {
	return &S3Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		timeout:  timeout,
	}
}

// ObjectKey names the object holding the code for txHash in the given format.
func (p *S3Publisher) ObjectKey(txHash, format string) string {
	key := fmt.Sprintf("proofqr-%s.%s", strings.ToLower(txHash), format)
	if p.prefix == "" {
		return key
	}
	return strings.TrimSuffix(p.prefix, "/") + "/" + key
}

// Publish uploads the PNG and SVG renderings of code and returns their keys.
func (p *S3Publisher) Publish(ctx context.Context, txHash string, code *qr.Code) ([]string, error) {
	objects := []struct {
		format      string
		contentType string
		body        []byte
	}{
		{"png", "image/png", code.PNG},
		{"svg", "image/svg+xml", []byte(code.SVG)},
	}

	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		key := p.ObjectKey(txHash, o.format)
		if err := p.upload(ctx, key, o.contentType, o.body); err != nil {
			return keys, fmt.Errorf("failed to publish %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *S3Publisher) upload(ctx context.Context, key, contentType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		log.Printf("QR code %s uploaded to S3 successfully!", key)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
