// Package upload implements the upload gateway: it names incoming files,
// streams them into the object store and shapes the JSON result.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/gzadmin/uploadgw/internal/storage"
)

const (
	defaultContentType = "application/octet-stream"
	sniffLen           = 3072
	successMessage     = "upload succeeded"
)

// Request is a single file submission.
type Request struct {
	FileName    string
	ContentType string // declared by the client, may be empty
	Size        int64  // -1 when unknown
	Body        io.Reader
	Model       string
	Channel     string
}

// Result is the success body returned to the admin client. Key is the full
// object key, FileName the generated name without namespace and URL the
// public address built from Key.
type Result struct {
	Success  bool   `json:"success" example:"true"`
	Key      string `json:"key" example:"games/gz/1700000000000-cover.webp"`
	FileName string `json:"fileName" example:"1700000000000-cover.webp"`
	URL      string `json:"url" example:"https://image.example.com/games/gz/1700000000000-cover.webp"`
	Message  string `json:"message,omitempty" example:"upload succeeded"`
}

// Options controls key derivation.
type Options struct {
	// Namespaced prefixes keys with "{model}/{channel}/".
	Namespaced     bool
	DefaultModel   string
	DefaultChannel string
	Namer          Namer
	// Binding names the store configuration in StorageUnavailable messages.
	Binding string
}

// Service streams uploads into the object store.
type Service struct {
	store storage.Storage
	opts  Options
	log   *zap.Logger
}

// NewService creates a new upload Service. store may be nil when no binding
// is configured; every upload then fails with KindStorageUnavailable.
func NewService(store storage.Storage, opts Options, log *zap.Logger) *Service {
	if opts.Namer == nil {
		opts.Namer = TimestampNamer{}
	}
	if opts.Binding == "" {
		opts.Binding = "object store"
	}
	return &Service{
		store: store,
		opts:  opts,
		log:   log.With(zap.String("component", "upload_service")),
	}
}

// Ready checks the storage binding without touching any request data.
func (s *Service) Ready(ctx context.Context) error {
	if s.store == nil {
		return newError(KindStorageUnavailable, fmt.Sprintf("storage binding %s is not configured", s.opts.Binding), nil)
	}
	if err := s.store.Ready(ctx); err != nil {
		return newError(KindStorageUnavailable, fmt.Sprintf("storage binding %s is unavailable", s.opts.Binding), err)
	}
	return nil
}

// Key derives the object key for a file name and optional model and channel.
func (s *Service) Key(fileName, model, channel string) (Key, error) {
	if err := validateSegments(model, channel); err != nil {
		return Key{}, err
	}
	key := Key{Name: s.opts.Namer.Name(cleanFileName(fileName))}
	if s.opts.Namespaced {
		key.Model = orDefault(model, s.opts.DefaultModel)
		key.Channel = orDefault(channel, s.opts.DefaultChannel)
	}
	return key, nil
}

// Upload writes req to the store under a freshly generated key. The write is
// a single streaming put; it is not retried.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	if err := s.Ready(ctx); err != nil {
		return nil, err
	}
	if req.Body == nil || req.Size == 0 {
		return nil, newError(KindMissingFile, "file is missing or empty", nil)
	}

	key, err := s.Key(req.FileName, req.Model, req.Channel)
	if err != nil {
		return nil, err
	}

	body, contentType, err := detectContentType(req.Body, req.ContentType)
	if err != nil {
		return nil, newError(KindMalformedRequest, "read file", err)
	}

	objectKey := key.String()
	if err := s.store.Upload(ctx, objectKey, body, req.Size, contentType); err != nil {
		s.log.Error("upload failed", zap.String("key", objectKey), zap.Error(err))
		return nil, newError(KindWriteFailure, "", err)
	}

	s.log.Info("file uploaded",
		zap.String("key", objectKey),
		zap.String("content_type", contentType),
		zap.String("size", sizeString(req.Size)),
	)

	return &Result{
		Success:  true,
		Key:      objectKey,
		FileName: key.Name,
		URL:      s.store.PublicURL(objectKey),
		Message:  successMessage,
	}, nil
}

// detectContentType returns the declared type when there is one. Otherwise it
// sniffs the head of body and returns a reader that replays it.
func detectContentType(body io.Reader, declared string) (io.Reader, string, error) {
	if declared != "" {
		return body, declared, nil
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", err
	}
	head = head[:n]
	contentType := defaultContentType
	if n > 0 {
		contentType = mimetype.Detect(head).String()
	}
	return io.MultiReader(bytes.NewReader(head), body), contentType, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func sizeString(size int64) string {
	if size < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(size))
}
