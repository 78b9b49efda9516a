package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"promptmatch-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	uploadURLTTL       = 5 * time.Minute
	defaultPhotoURLTTL = time.Hour
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoResolver turns a stored photo reference into a URL clients can load
type PhotoResolver interface {
	ResolveURL(ctx context.Context, ref string) (string, error)
}

// PhotoOptions configures the S3 bucket holding profile photos
type PhotoOptions struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string // S3 compatible store such as MinIO
	URLTTL    time.Duration
}

// PhotoService issues presigned URLs for profile photos
type PhotoService struct {
	presign *s3.PresignClient
	bucket  string
	urlTTL  time.Duration
}

// NewPhotoService creates a new photo service from the default AWS credential chain,
// or from static keys when both are set.
func NewPhotoService(ctx context.Context, opts PhotoOptions) (*PhotoService, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewPhotoServiceWithClient(s3Client, opts.Bucket, opts.URLTTL), nil
}

// NewPhotoServiceWithClient creates a photo service on top of an existing S3 client
func NewPhotoServiceWithClient(client *s3.Client, bucket string, urlTTL time.Duration) *PhotoService {
	if urlTTL <= 0 {
		urlTTL = defaultPhotoURLTTL
	}
	return &PhotoService{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		urlTTL:  urlTTL,
	}
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PhotoRef  string `json:"photo_ref"`
	ExpiresIn int    `json:"expires_in"`
}

// RequestUpload generates a pre-signed URL for uploading a profile photo. The returned
// reference is saved on the profile once the upload finished.
func (s *PhotoService) RequestUpload(ctx context.Context, userID, contentType string) (*UploadResponse, error) {
	if s.bucket == "" {
		return nil, ErrPhotosDisabled
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ext, ok := photoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrValidation, contentType)
	}

	// Key: users/{user_id}/{photo_id}.jpg
	ref := photoPrefix(userID) + uuid.New().String() + ext

	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ref),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadURLTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		PhotoRef:  ref,
		ExpiresIn: int(uploadURLTTL.Seconds()),
	}, nil
}

// ResolveURL returns a pre-signed download URL for ref, or "" when ref is empty
func (s *PhotoService) ResolveURL(ctx context.Context, ref string) (string, error) {
	if ref == "" || s.bucket == "" {
		return "", nil
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return request.URL, nil
}

func photoPrefix(userID string) string {
	return "users/" + userID + "/"
}

func ownsPhotoRef(userID, ref string) bool {
	rest, ok := strings.CutPrefix(ref, photoPrefix(userID))
	return ok && rest != "" && !strings.Contains(rest, "/") && !strings.Contains(rest, "..")
}

// publicProfile builds what other users may see about user
func publicProfile(ctx context.Context, photos PhotoResolver, user *models.User) (models.PublicProfile, error) {
	profile := models.PublicProfile{
		ID:     user.ID,
		Name:   user.Name,
		School: user.School,
	}
	if photos == nil || user.PhotoRef == nil {
		return profile, nil
	}

	url, err := photos.ResolveURL(ctx, *user.PhotoRef)
	if err != nil {
		return profile, err
	}
	profile.PhotoURL = url
	return profile, nil
}
