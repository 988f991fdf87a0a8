package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"civreg/internal/certificate/models"
	"civreg/internal/certificate/normalizer"
	"civreg/internal/certificate/service"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/platform/validation"
	"civreg/pkg/requestcontext"
)

const dataPart = "data"

// Service defines the certificate pipeline operations the handlers need.
type Service interface {
	Submit(ctx context.Context, sub normalizer.Submission, policy service.RenderPolicy) (*service.Result, error)
	Record(ctx context.Context, id int64) (models.Record, error)
	Document(ctx context.Context, id int64) ([]byte, error)
	StoredDocument(ctx context.Context, id int64) ([]byte, error)
	List(ctx context.Context, limit, offset int) ([]models.Summary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
	// multipartPolicy applies to POST /birth-certificates. JSON submissions
	// always render at insert because the response is the document.
	multipartPolicy service.RenderPolicy
}

type Option func(*Handler)

// WithMultipartRenderPolicy sets when multipart submissions are rendered.
// Under RenderAtRetrieval no document is stored, so the stored certificate
// endpoint answers 404 and GET /certificates/{id} renders on demand.
func WithMultipartRenderPolicy(policy service.RenderPolicy) Option {
	return func(h *Handler) {
		h.multipartPolicy = policy
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.HandleCreateCertificate)
	r.Get("/certificates", h.HandleListCertificates)
	r.Get("/certificates/{id}", h.HandleRenderCertificate)
	r.Post("/birth-certificates", h.HandleCreateBirthCertificate)
	r.Get("/birth-certificates/{id}", h.HandleGetBirthCertificate)
	r.Get("/birth-certificates/{id}/certificate", h.HandleGetStoredCertificate)
}

// HandleCreateCertificate accepts a JSON registration and responds with the rendered PDF.
func (h *Handler) HandleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validation.MaxBodySize))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read request body", "error", err, "request_id", requestID)
		httputil.WriteError(w, httputil.BodyError(err, "invalid request body"))
		return
	}

	res, err := h.service.Submit(ctx, normalizer.Submission{Fields: body}, service.RenderAtInsert)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writePDF(w, res.ID, res.Document)
}

// HandleCreateBirthCertificate accepts a multipart registration with optional
// identity documents and responds with the stored record.
func (h *Handler) HandleCreateBirthCertificate(w http.ResponseWriter, r *http.Request) {
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

	sub, err := submissionFromForm(r.MultipartForm)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid birth certificate submission", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Submit(ctx, sub, h.multipartPolicy)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, res.Record.WithID(res.ID))
}

// HandleRenderCertificate renders the stored record of a certificate on demand.
func (h *Handler) HandleRenderCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Document(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writePDF(w, id, doc)
}

// HandleGetStoredCertificate returns the document persisted at submission time.
func (h *Handler) HandleGetStoredCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.StoredDocument(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writePDF(w, id, doc)
}

// HandleGetBirthCertificate returns the stored registration with its id.
func (h *Handler) HandleGetBirthCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	record, err := h.service.Record(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleListCertificates lists certificates newest first.
func (h *Handler) HandleListCertificates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &ListRequest{
		Limit:  r.URL.Query().Get("limit"),
		Offset: r.URL.Query().Get("offset"),
	}
	if !httputil.Prepare(w, req, h.logger, ctx, requestcontext.RequestID(ctx)) {
		return
	}

	list, err := h.service.List(ctx, req.limit, req.offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{
		Certificates: list,
		Limit:        req.limit,
		Offset:       req.offset,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certificate id"))
		return 0, false
	}
	return id, true
}

func writePDF(w http.ResponseWriter, id int64, doc []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.Header().Set("X-Certificate-Id", strconv.FormatInt(id, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="birth-certificate-%d.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// submissionFromForm reads the data part and the optional identity documents.
// Only file names and sizes are kept; the bytes are discarded with the form.
func submissionFromForm(form *multipart.Form) (normalizer.Submission, error) {
	fields, err := readDataPart(form)
	if err != nil {
		return normalizer.Submission{}, err
	}

	sub := normalizer.Submission{Fields: fields, Files: map[models.Role]normalizer.FilePart{}}
	for _, role := range models.Roles() {
		headers := form.File[filePartName(role)]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		if err := validation.CheckStringLength("file name", fh.Filename, validation.MaxFileNameLength); err != nil {
			return normalizer.Submission{}, err
		}
		if fh.Size > validation.MaxIdentityFileSize {
			return normalizer.Submission{}, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("%s exceeds max size of %d bytes", filePartName(role), validation.MaxIdentityFileSize))
		}
		sub.Files[role] = normalizer.FilePart{Name: fh.Filename, Size: fh.Size}
	}
	return sub, nil
}

// readDataPart accepts the registration JSON as either a form value or a file part.
func readDataPart(form *multipart.Form) ([]byte, error) {
	if values := form.Value[dataPart]; len(values) > 0 {
		return []byte(values[0]), nil
	}
	headers := form.File[dataPart]
	if len(headers) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "data part is required")
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable data part")
	}
	defer f.Close()

	fields, err := io.ReadAll(io.LimitReader(f, validation.MaxBodySize+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable data part")
	}
	if len(fields) > validation.MaxBodySize {
		return nil, dErrors.New(dErrors.CodeValidation, "data part exceeds max size")
	}
	return fields, nil
}

func filePartName(role models.Role) string {
	return string(role) + "AadhaarFile"
}
