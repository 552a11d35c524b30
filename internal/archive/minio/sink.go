// Package minio archives one write-once receipt blob per accepted payment
// record. The sink is not authoritative: accrual never waits on it and
// never rolls back when it fails.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pixvend/credit-ledger/internal/interfaces"
	"github.com/pixvend/credit-ledger/internal/models"
)

type Sink struct {
	client *minio.Client
	bucket string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Sink{client: client, bucket: cfg.Bucket}, nil
}

func (s *Sink) Archive(ctx context.Context, receipt models.RawReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	name := fmt.Sprintf("receipts/%s/%s.json", receipt.TxID, receipt.EndToEndID)
	_, err = s.client.PutObject(ctx, s.bucket, name,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put receipt %s: %w", name, err)
	}
	return nil
}

var _ interfaces.ArchiveSink = (*Sink)(nil)
