package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// maxImageBytes bounds a single uploaded image.
const maxImageBytes = 5 << 20

var ErrInvalidImage = errors.New("image must be a base64 data URI or an http(s) URL")

// StorageConfig describes an S3-compatible bucket.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base of object URLs, e.g. https://bucket.example.com.
	PublicURL string
}

type objectPutter interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// ImageStore uploads item photos so records keep a URL instead of the bytes.
type ImageStore struct {
	client    objectPutter
	bucket    string
	publicURL string
}

// NewImageStore connects to the bucket described by cfg.
func NewImageStore(cfg StorageConfig) (*ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		endpoint := strings.TrimRight(cfg.Endpoint, "/")
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
		}
		publicURL = endpoint + "/" + cfg.Bucket
	}
	return newImageStore(s3.New(sess), cfg.Bucket, publicURL), nil
}

func newImageStore(client objectPutter, bucket, publicURL string) *ImageStore {
	return &ImageStore{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// Store uploads a data URI image under folder and returns its public URL.
// http(s) URLs are returned unchanged.
func (s *ImageStore) Store(ctx context.Context, image, folder string) (string, error) {
	if image == "" || strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image, nil
	}
	contentType, data, err := decodeDataURI(image)
	if err != nil {
		return "", err
	}

	ext := "jpg"
	if i := strings.Index(contentType, "/"); i >= 0 && contentType[i+1:] != "jpeg" {
		ext = contentType[i+1:]
	}
	key := fmt.Sprintf("%s/%s.%s", folder, uuid.NewString(), ext)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload file to S3: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

func decodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, ErrInvalidImage
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrInvalidImage
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ErrInvalidImage
	}
	if len(data) == 0 || len(data) > maxImageBytes {
		return "", nil, fmt.Errorf("image size %d bytes is not allowed", len(data))
	}
	return contentType, data, nil
}
