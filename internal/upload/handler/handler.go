package handler

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civreg/internal/certificate/models"
	"civreg/internal/upload/service"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/platform/validation"
	"civreg/pkg/requestcontext"
)

const registrationNumberPart = "registrationNumber"

type Service interface {
	Upload(ctx context.Context, req service.Request) (*service.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/uploads/identity-documents", h.HandleUploadIdentityDocuments)
}

// HandleUploadIdentityDocuments stores the parents' identity scans. Per-file
// failures are reported in the body; the request itself still succeeds.
func (h *Handler) HandleUploadIdentityDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxMultipartBodySize)
	if err := r.ParseMultipartForm(validation.MultipartMemory); err != nil {
		h.logger.WarnContext(ctx, "failed to parse multipart form", "error", err, "request_id", requestID)
		httputil.WriteError(w, httputil.BodyError(err, "invalid multipart body"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := service.Request{Files: map[models.Role]service.File{}}
	if v := r.MultipartForm.Value[registrationNumberPart]; len(v) > 0 {
		req.RegistrationNumber = v[0]
	}

	for _, role := range models.Roles() {
		headers := r.MultipartForm.File[partName(role)]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		if fh.Size > validation.MaxIdentityFileSize {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, partName(role)+" exceeds the maximum file size"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.logger.WarnContext(ctx, "failed to open uploaded file", "error", err, "request_id", requestID)
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable file part"))
			return
		}
		defer closeFile(f)
		req.Files[role] = service.File{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		}
	}

	res, err := h.service.Upload(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "identity document upload rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUploadResponse(res))
}

func closeFile(f multipart.File) {
	_ = f.Close()
}

func partName(role models.Role) string {
	return string(role) + "Aadhaar"
}

// toUploadResponse flattens the result into {role}AadhaarPath / {role}AadhaarError keys.
func toUploadResponse(res *service.Result) map[string]string {
	out := map[string]string{}
	if res.RegistrationNumber != "" {
		out[registrationNumberPart] = res.RegistrationNumber
	}
	for role, p := range res.Paths {
		out[partName(role)+"Path"] = p
	}
	for role, msg := range res.Errors {
		out[partName(role)+"Error"] = msg
	}
	return out
}
