package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
)

// ErrDisabled is returned by the no-op store when Cloudinary is not configured.
var ErrDisabled = errors.New("media store is not configured")

// Store is binary object storage addressed by caller-chosen keys.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, mimeType string) (string, error)
	Delete(ctx context.Context, key string, mimeType string) error
}

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore keeps objects under one Cloudinary folder.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cfg Config) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init failed: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: strings.Trim(cfg.Folder, "/")}, nil
}

// Upload stores data under key and returns its public https URL.
func (s *CloudinaryStore) Upload(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	publicID, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty upload for %s", key)
	}
	overwrite := true
	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       s.folder,
		ResourceType: ResourceType(mimeType),
		Overwrite:    &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload %s: %w", key, err)
	}
	if result.Error.Message != "" {
		return "", rejected("upload", key, result.Error.Message)
	}
	return result.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, key string, mimeType string) error {
	publicID, err := cleanKey(key)
	if err != nil {
		return err
	}
	if s.folder != "" {
		publicID = path.Join(s.folder, publicID)
	}
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: ResourceType(mimeType),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", key, err)
	}
	if result.Error.Message != "" {
		return rejected("destroy", key, result.Error.Message)
	}
	return nil
}

// rejected reports an API-level refusal, as opposed to a transport failure.
func rejected(op, key, message string) error {
	return apperrors.ExternalServiceError("cloudinary", fmt.Sprintf("cloudinary %s %s rejected: %s", op, key, message))
}

// ResourceType maps a MIME type onto Cloudinary's image/video/raw buckets.
func ResourceType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return "raw"
	}
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return key, nil
}

// Disabled is the store used when no credentials are configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, []byte, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string, string) error {
	return ErrDisabled
}
