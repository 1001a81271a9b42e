package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/kulinar/backend/config"
)

// ImageStore persists decoded images and returns their public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, data []byte, contentType, prefix string) (string, error)
}

// S3ImageStore stores images in the configured S3 bucket.
type S3ImageStore struct {
	s3Config *config.S3Config
}

var _ ImageStore = (*S3ImageStore)(nil)

func NewS3ImageStore(s3Config *config.S3Config) *S3ImageStore {
	return &S3ImageStore{s3Config: s3Config}
}

// UploadImage puts the object under a fresh uuid key and returns its URL.
func (s *S3ImageStore) UploadImage(ctx context.Context, data []byte, contentType, prefix string) (string, error) {
	ext := "png"
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 && parts[1] != "" {
		ext = parts[1]
	}
	fileName := fmt.Sprintf("%s/%s.%s", prefix, uuid.New().String(), ext)

	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, fileName), nil
}

// DecodeBase64Image decodes a "data:image/png;base64,..." payload. A bare
// base64 string without the data-URI header is accepted as PNG.
func DecodeBase64Image(encoded string) ([]byte, string, error) {
	contentType := "image/png"
	payload := encoded

	if strings.HasPrefix(encoded, "data:") {
		header, rest, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URI")
		}
		payload = rest
		header = strings.TrimPrefix(header, "data:")
		if mediaType, _, found := strings.Cut(header, ";"); found && mediaType != "" {
			contentType = mediaType
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image")
	}

	return data, contentType, nil
}
