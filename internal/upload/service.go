// Package upload provides presigned URL generation for direct-to-R2
// figure portrait uploads.
package upload

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// AllowedMIMETypes maps allowed portrait content types to file extensions.
var AllowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// MaxUploadSizeMB is the default maximum upload size in megabytes.
const MaxUploadSizeMB = 5

// DefaultURLExpiry is how long a presigned URL stays valid.
const DefaultURLExpiry = 15 * time.Minute

var (
	// ErrUnsupportedType is returned when the content type is not allowed.
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrFileTooLarge is returned when the file exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidFigureID is returned when the figure ID contains unsafe characters.
	ErrInvalidFigureID = errors.New("invalid figure ID")
)

// SignedURLRequest describes a client's request for a presigned upload URL.
type SignedURLRequest struct {
	// ContentType is the MIME type of the file to upload.
	ContentType string `json:"content_type"`

	// SizeBytes is the size of the file in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// FigureID optionally scopes the object key to a figure. Portraits
	// uploaded before the figure exists use a temp prefix instead.
	FigureID string `json:"figure_id,omitempty"`
}

// SignedURLResponse contains the presigned URL and the object key the
// client should store on the figure once the upload completes.
type SignedURLResponse struct {
	// URL is the presigned PUT URL.
	URL string `json:"url"`

	// ObjectKey is the storage key for the uploaded object.
	ObjectKey string `json:"object_key"`

	// ExpiresAt is when the presigned URL expires.
	ExpiresAt time.Time `json:"expires_at"`
}

// ServiceConfig holds R2 connection settings for the upload service.
type ServiceConfig struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	MaxSizeMB       int
	URLExpiry       time.Duration
}

// Validate checks that required config fields are set.
func (c *ServiceConfig) Validate() error {
	if c.BucketName == "" {
		return errors.New("bucket name is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("secret access key is required")
	}
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	return nil
}

// Service generates presigned upload URLs against an S3-compatible store.
type Service struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	maxSizeBytes  int64
	urlExpiry     time.Duration

	// timeNow is overridable in tests.
	timeNow func() time.Time
}

// NewService creates an upload service from the given config.
func NewService(config ServiceConfig) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upload config: %w", err)
	}

	if config.MaxSizeMB <= 0 {
		config.MaxSizeMB = MaxUploadSizeMB
	}
	if config.URLExpiry <= 0 {
		config.URLExpiry = DefaultURLExpiry
	}

	client := s3.New(s3.Options{
		Region:       "auto",
		Credentials:  credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		BaseEndpoint: aws.String(config.Endpoint),
		UsePathStyle: true,
	})

	return &Service{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    config.BucketName,
		maxSizeBytes:  int64(config.MaxSizeMB) * 1024 * 1024,
		urlExpiry:     config.URLExpiry,
		timeNow:       time.Now,
	}, nil
}

// ValidateContentType checks whether the content type is an allowed
// portrait type and returns its canonical file extension.
func (s *Service) ValidateContentType(contentType string) (string, error) {
	ext, ok := AllowedMIMETypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return ext, nil
}

// ValidateFileSize checks the declared size against the configured limit.
func (s *Service) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return errors.New("file size must be positive")
	}
	if sizeBytes > s.maxSizeBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, sizeBytes, s.maxSizeBytes)
	}
	return nil
}

var pathComponentRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizePathComponent strips anything that could alter the object path.
func sanitizePathComponent(s string) string {
	return pathComponentRe.ReplaceAllString(s, "")
}

// GenerateObjectKey builds a unique storage key for a portrait.
// Keys look like "figures/{figureID}/{uuid}.jpg", or "figures/temp/..."
// when no figure exists yet.
func (s *Service) GenerateObjectKey(figureID, ext string) (string, error) {
	prefix := "temp"
	if figureID != "" {
		prefix = sanitizePathComponent(figureID)
		if prefix == "" {
			return "", ErrInvalidFigureID
		}
	}
	return fmt.Sprintf("figures/%s/%s%s", prefix, uuid.New().String(), ext), nil
}

// GenerateSignedURL validates the request and returns a presigned PUT URL.
func (s *Service) GenerateSignedURL(ctx context.Context, req SignedURLRequest) (*SignedURLResponse, error) {
	ext, err := s.ValidateContentType(req.ContentType)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateFileSize(req.SizeBytes); err != nil {
		return nil, err
	}

	objectKey, err := s.GenerateObjectKey(req.FigureID, ext)
	if err != nil {
		return nil, err
	}

	presigned, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(objectKey),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.SizeBytes),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload URL: %w", err)
	}

	return &SignedURLResponse{
		URL:       presigned.URL,
		ObjectKey: objectKey,
		ExpiresAt: s.timeNow().Add(s.urlExpiry),
	}, nil
}

// MaxSizeBytes reports the configured upload size limit.
func (s *Service) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}
