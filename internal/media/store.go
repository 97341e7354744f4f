// Package media talks to the S3-compatible object store that holds profile
// images. Uploads and deletes go through the aws-sdk client; reads are
// served by the streaming client in client.go.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadResult is what the remote store reports for a stored object.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Store is the remote media store contract the controllers depend on.
type Store interface {
	// Upload stores a local file and returns its public URL and id.
	Upload(ctx context.Context, localPath string) (*UploadResult, error)
	// Delete removes a stored object by its public id.
	Delete(ctx context.Context, publicID string) error
}

// S3Store implements Store over any S3-compatible backend (AWS S3 or MinIO).
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// S3Config holds the configuration for the upload client.
type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
	PublicBase   string
}

// NewS3Store creates a new S3Store instance.
func NewS3Store(cfg *S3Config) *S3Store {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  awscreds.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle, // Required for MinIO
	}

	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Store{
		client:     s3.New(opts),
		bucket:     cfg.Bucket,
		publicBase: strings.TrimSuffix(cfg.PublicBase, "/"),
	}
}

// objectKey returns the storage key for a public id. Keys carry no file
// extension so the id round-trips through PublicIDFromURL.
func objectKey(publicID string) string {
	return "images/" + publicID
}

// Upload stores the file under a fresh public id.
func (s *S3Store) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	contentType, err := sniffContentType(file)
	if err != nil {
		return nil, err
	}

	publicID := uuid.NewString()
	key := objectKey(publicID)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(fileInfo.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	return &UploadResult{
		URL:      s.publicBase + "/" + key,
		PublicID: publicID,
	}, nil
}

// Delete removes a stored object by its public id.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(publicID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", publicID, err)
	}
	return nil
}

func sniffContentType(f *os.File) (string, error) {
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}
	return http.DetectContentType(buf[:n]), nil
}

// PublicIDFromURL derives the public id of a stored object from its URL:
// the last path segment with any extension stripped.
func PublicIDFromURL(url string) string {
	parts := strings.Split(url, "/")
	fileName := parts[len(parts)-1]
	return strings.SplitN(fileName, ".", 2)[0]
}
