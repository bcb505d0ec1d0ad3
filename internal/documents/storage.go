package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"baaseteen/case-portal/case-portal-backend/pkg/storage"
)

// StorageProvider keeps letter bodies in S3 when a bucket is configured.
type StorageProvider struct {
	s3     storage.S3Client
	bucket string
}

// NewStorageProvider returns nil when either argument is empty, meaning
// bodies are stored inline.
func NewStorageProvider(s3 storage.S3Client, bucket string) *StorageProvider {
	if s3 == nil || bucket == "" {
		return nil
	}
	return &StorageProvider{s3: s3, bucket: bucket}
}

// Put stores body on the letter, either in S3 or inline.
func (p *StorageProvider) Put(ctx context.Context, letter *CoverLetter, body []byte) error {
	letter.FileSize = int64(len(body))
	if p == nil {
		letter.Content = body
		return nil
	}
	key := p.GenerateS3Key(letter.CaseNumber, letter.FileName)
	if _, err := p.s3.Upload(ctx, p.bucket, key, pdfContentType, bytes.NewReader(body)); err != nil {
		return err
	}
	bucket := p.bucket
	letter.S3Bucket = &bucket
	letter.S3Key = &key
	return nil
}

// Get returns the letter body from wherever it was stored.
func (p *StorageProvider) Get(ctx context.Context, letter *CoverLetter) ([]byte, error) {
	if !letter.Stored() {
		return letter.Content, nil
	}
	if p == nil {
		return nil, fmt.Errorf("cover letter %s is in s3://%s but object storage is not configured", letter.ID, *letter.S3Bucket)
	}
	rc, err := p.s3.Download(ctx, *letter.S3Bucket, *letter.S3Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *StorageProvider) GenerateS3Key(caseNumber, fileName string) string {
	return fmt.Sprintf("cases/%s/cover-letters/%s", caseNumber, fileName)
}
