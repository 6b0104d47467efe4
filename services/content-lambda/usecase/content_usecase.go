package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/glitzfusion/fusionx/common/content"
	apperrors "github.com/glitzfusion/fusionx/common/errors"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/media"
	"github.com/glitzfusion/fusionx/common/validator"
	"github.com/glitzfusion/fusionx/services/content-lambda/models"
)

// MaxMediaBytes bounds a single upload after decoding.
const MaxMediaBytes = 10 << 20

var allowedMedia = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"video/mp4":       true,
	"application/pdf": true,
}

// ContentUseCase fronts the content and media stores for the admin UI.
type ContentUseCase struct {
	store content.Store
	media media.Store
	log   *logger.Logger
}

func NewContentUseCase(store content.Store, mediaStore media.Store, log *logger.Logger) *ContentUseCase {
	if log == nil {
		log = logger.Default()
	}
	if mediaStore == nil {
		mediaStore = media.Disabled{}
	}
	return &ContentUseCase{store: store, media: mediaStore, log: log.With("service", "content")}
}

func checkNames(section, key string) error {
	switch {
	case strings.TrimSpace(section) == "":
		return apperrors.MissingField("section")
	case strings.ContainsAny(section, ": "):
		return apperrors.InvalidInput("section", "section must not contain spaces or colons")
	case strings.TrimSpace(key) == "":
		return apperrors.MissingField("key")
	}
	return nil
}

func storeError(err error, what string) error {
	if errors.Is(err, content.ErrNotFound) {
		return apperrors.NotFound(what)
	}
	return apperrors.StoreError("content store", err)
}

// mediaError keeps a provider refusal as is and reports anything else as
// the store being unavailable.
func mediaError(err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.StoreError("media store", err)
}

func (uc *ContentUseCase) Get(ctx context.Context, section, key string) (*models.Document, error) {
	if err := checkNames(section, key); err != nil {
		return nil, err
	}
	doc, err := uc.store.Get(ctx, section, key)
	if err != nil {
		return nil, storeError(err, "content")
	}
	return &models.Document{Section: section, Key: key, Content: doc}, nil
}

// List returns a section's documents sorted by key.
func (uc *ContentUseCase) List(ctx context.Context, section string) ([]models.Document, error) {
	if err := checkNames(section, "list"); err != nil {
		return nil, err
	}
	docs, err := uc.store.List(ctx, section)
	if err != nil {
		return nil, storeError(err, "content")
	}
	out := make([]models.Document, 0, len(docs))
	for _, k := range content.Keys(docs) {
		out = append(out, models.Document{Section: section, Key: k, Content: docs[k]})
	}
	return out, nil
}

func (uc *ContentUseCase) Put(ctx context.Context, section, key string, doc json.RawMessage, admin string) (*models.Document, error) {
	if err := checkNames(section, key); err != nil {
		return nil, err
	}
	if len(doc) == 0 || !json.Valid(doc) {
		return nil, apperrors.InvalidInput("content", "content must be a JSON document")
	}
	if err := uc.store.Put(ctx, section, key, doc); err != nil {
		return nil, storeError(err, "content")
	}
	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event: "CONTENT_SAVED", Actor: admin, Entity: "content", EntityID: section + "/" + key, Action: "put", Success: true,
	})
	return &models.Document{Section: section, Key: key, Content: doc}, nil
}

func (uc *ContentUseCase) Delete(ctx context.Context, section, key, admin string) error {
	if err := checkNames(section, key); err != nil {
		return err
	}
	if err := uc.store.Delete(ctx, section, key); err != nil {
		return storeError(err, "content")
	}
	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event: "CONTENT_DELETED", Actor: admin, Entity: "content", EntityID: section + "/" + key, Action: "delete", Success: true,
	})
	return nil
}

// UploadMedia decodes and stores one object and returns its URL.
func (uc *ContentUseCase) UploadMedia(ctx context.Context, req *models.UploadMediaRequest, admin string) (*models.MediaObject, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	mimeType := strings.ToLower(strings.TrimSpace(req.MimeType))
	if !allowedMedia[mimeType] {
		return nil, apperrors.InvalidInput("mimeType", fmt.Sprintf("%s uploads are not accepted", mimeType))
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, apperrors.InvalidInput("data", "data must be base64")
	}
	if len(data) == 0 || len(data) > MaxMediaBytes {
		return nil, apperrors.InvalidInput("data", fmt.Sprintf("file must be between 1 byte and %d MB", MaxMediaBytes>>20))
	}

	key := strings.Trim(strings.TrimSpace(req.Key), "/")
	if key == "" {
		key = generateKey(req.Filename)
	}
	if strings.Contains(key, "..") {
		return nil, apperrors.InvalidInput("key", "key must not contain ..")
	}

	url, err := uc.media.Upload(ctx, key, data, mimeType)
	if err != nil {
		return nil, mediaError(err)
	}
	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event: "MEDIA_UPLOADED", Actor: admin, Entity: "media", EntityID: key, Action: "upload", Success: true,
		Metadata: map[string]interface{}{"mime_type": mimeType, "size": len(data)},
	})
	return &models.MediaObject{Key: key, URL: url, MimeType: mimeType, Size: len(data)}, nil
}

func (uc *ContentUseCase) DeleteMedia(ctx context.Context, key, mimeType, admin string) error {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return apperrors.MissingField("key")
	}
	if err := uc.media.Delete(ctx, key, mimeType); err != nil {
		return mediaError(err)
	}
	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event: "MEDIA_DELETED", Actor: admin, Entity: "media", EntityID: key, Action: "delete", Success: true,
	})
	return nil
}

// generateKey is "media/<slug>-<8 hex>"; the suffix keeps repeated
// filenames apart.
func generateKey(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	name := slug.Make(base)
	if name == "" || name == "." {
		name = "upload"
	}
	return "media/" + name + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
