package upload

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gzadmin/uploadgw/internal/response"
)

// Handler holds the HTTP handlers for the upload gateway.
type Handler struct {
	svc             *Service
	maxUploadSize   int64
	multipartMemory int64
	log             *zap.Logger
}

// NewHandler creates a new upload Handler. Bodies larger than maxUploadSize
// are rejected; file parts above multipartMemory are spooled to disk.
func NewHandler(svc *Service, maxUploadSize, multipartMemory int64, log *zap.Logger) *Handler {
	return &Handler{
		svc:             svc,
		maxUploadSize:   maxUploadSize,
		multipartMemory: multipartMemory,
		log:             log.With(zap.String("component", "upload_handler")),
	}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores one file in the object store under "{model}/{channel}/{timestamp}-{name}" and returns its key and public URL. model and channel default to the configured values.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to store"
//	@Param			model	formData	string	false	"Model segment, e.g. games"
//	@Param			channel	formData	string	false	"Channel segment, e.g. gz"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(rw http.ResponseWriter, r *http.Request) {
	w := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.log.Error("upload panicked", zap.Any("panic", rec), zap.Int("status", w.Status()))
			// Headers already sent; the client gets a truncated body.
			if w.Status() != 0 {
				return
			}
			h.fail(w, newError(KindInternal, fmt.Sprint(rec), nil))
		}
	}()

	// The binding is checked before the body is read.
	if err := h.svc.Ready(r.Context()); err != nil {
		h.fail(w, err)
		return
	}

	r.Body = http.MaxBytesReader(rw, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.multipartMemory); err != nil {
		h.fail(w, h.parseError(err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			h.fail(w, newError(KindMissingFile, "file is missing", nil))
			return
		}
		h.fail(w, newError(KindMalformedRequest, "read file part", err))
		return
	}
	defer file.Close()

	result, err := h.svc.Upload(r.Context(), Request{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Model:       formValue(r.MultipartForm, "model"),
		Channel:     formValue(r.MultipartForm, "channel"),
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Ready godoc
//
//	@Summary		Storage readiness
//	@Description	Reports whether the object store binding can accept uploads.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Router			/ready [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		response.ServiceUnavailable(w, err.Error())
		return
	}
	response.OK(w, map[string]string{"storage": "ok"})
}

func (h *Handler) parseError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return newError(KindPayloadTooLarge,
			fmt.Sprintf("request body exceeds %s", humanize.Bytes(uint64(h.maxUploadSize))), nil)
	}
	return newError(KindMalformedRequest, "invalid multipart form data", err)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	if kind.Status() >= http.StatusInternalServerError {
		h.log.Error("upload rejected", zap.Stringer("kind", kind), zap.Error(err))
	} else {
		h.log.Info("upload rejected", zap.Stringer("kind", kind), zap.Error(err))
	}
	response.ErrorCode(w, kind.Status(), kind.String(), err.Error())
}

func formValue(form *multipart.Form, key string) string {
	if form == nil {
		return ""
	}
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
