// Package archive uploads closed-bout bundles to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/ringside/internal/domain/model"
)

// ErrMissingBucket is returned when an S3 archiver is built without a bucket.
var ErrMissingBucket = errors.New("archive bucket not configured")

// RoundBundle is one round's ledger and official card.
type RoundBundle struct {
	Round        int                      `json:"round"`
	Entries      []model.LedgerEntry      `json:"entries"`
	Verification model.VerificationResult `json:"verification"`
	Card         *model.RoundScoreCard    `json:"card,omitempty"`
}

// Bundle is everything recorded for a bout at close.
type Bundle struct {
	BoutID            string                   `json:"bout_id"`
	ClosedBy          string                   `json:"closed_by"`
	ClosedMS          int64                    `json:"closed_ms"`
	Rounds            []RoundBundle            `json:"rounds"`
	Audit             []model.AuditEntry       `json:"audit"`
	AuditVerification model.VerificationResult `json:"audit_verification"`
}

// Archiver stores bundles and returns the object key.
type Archiver interface {
	Archive(ctx context.Context, b *Bundle) (string, error)
}

// Nop discards bundles. Used when no bucket is configured.
type Nop struct{}

// Archive returns an empty key.
func (Nop) Archive(context.Context, *Bundle) (string, error) { return "", nil }

// putter is the slice of the S3 client the archiver needs.
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config selects the bucket and client settings.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // MinIO, LocalStack
}

// S3 writes bundles as JSON objects under <prefix><bout>/<closed_ms>.json.
type S3 struct {
	client putter
	bucket string
	prefix string
}

// NewS3 builds an archiver from the default AWS credential chain.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3(client putter, bucket, prefix string) *S3 {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a bundle.
func (s *S3) Key(b *Bundle) string {
	return s.prefix + b.BoutID + "/" + strconv.FormatInt(b.ClosedMS, 10) + ".json"
}

// Archive uploads b.
func (s *S3) Archive(ctx context.Context, b *Bundle) (string, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encode bundle: %w", err)
	}
	key := s.Key(b)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"bout-id":   b.BoutID,
			"closed-by": b.ClosedBy,
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed: %w", err)
	}
	return key, nil
}
