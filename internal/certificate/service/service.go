// Package service coordinates the certificate pipeline: normalize, render,
// store and notify on submission; lookup and re-render on retrieval.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	certmetrics "civreg/internal/certificate/metrics"
	"civreg/internal/certificate/models"
	"civreg/internal/certificate/normalizer"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/privacy"
	"civreg/pkg/platform/sentinel"
	platformsync "civreg/pkg/platform/sync"
	"civreg/pkg/platform/tracer"
	"civreg/pkg/requestcontext"
)

const defaultNotifyTimeout = 5 * time.Second

// Result is the outcome of a successful submission.
type Result struct {
	ID       int64
	Record   models.Record
	Document []byte
}

// Service is the pipeline coordinator. It is the only layer that turns
// component failures into domain errors.
type Service struct {
	normalizer Normalizer
	renderer   Renderer
	store      Store
	publisher  Publisher
	cache      DocumentCache
	logger     *slog.Logger
	metrics    *certmetrics.Metrics
	tracer     tracer.Tracer

	notifyTimeout time.Duration
	inflight      sync.WaitGroup
	renderLocks   *platformsync.ShardedMutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *certmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithPublisher enables creation events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithDocumentCache puts a cache in front of on-demand rendering.
func WithDocumentCache(c DocumentCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithNotifyTimeout bounds each background publish.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func New(n Normalizer, r Renderer, st Store, opts ...Option) *Service {
	s := &Service{
		normalizer:    n,
		renderer:      r,
		store:         st,
		logger:        slog.New(slog.DiscardHandler),
		tracer:        tracer.NewNoop(),
		notifyTimeout: defaultNotifyTimeout,
		renderLocks:   platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs a submission through the pipeline. The creation event is
// published in the background and never affects the result.
func (s *Service) Submit(ctx context.Context, sub normalizer.Submission, policy RenderPolicy) (_ *Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmit, tracer.String(tracer.AttrRenderPolicy, policy.String()))
	defer func() { span.End(err) }()

	s.enter(StageReceived)

	normalized, err := s.normalizer.Normalize(ctx, sub)
	if err != nil {
		return nil, s.fail(ctx, StageNormalized, err)
	}
	if err := checkPolicy(normalized); err != nil {
		return nil, s.fail(ctx, StageNormalized, err)
	}
	record := normalized.Record
	s.enter(StageNormalized)

	var document []byte
	if policy == RenderAtInsert {
		document, err = s.render(ctx, record)
		if err != nil {
			return nil, s.fail(ctx, StageRendered, err)
		}
		s.enter(StageRendered)
	}

	id, err := s.insert(ctx, record, document)
	if err != nil {
		return nil, s.fail(ctx, StageStored, err)
	}
	s.enter(StageStored)
	span.SetAttributes(tracer.Int64(tracer.AttrCertificateID, id))

	s.notifyAsync(ctx, models.CreationEvent{ID: id, Record: record.Clone()})

	s.enter(StageDone)
	s.logger.InfoContext(ctx, "certificate created",
		"certificate_id", id,
		"render_policy", policy.String(),
		"document_bytes", len(document),
		"mother_aadhaar", privacy.MaskIdentityNumber(record.Text(models.FieldMotherAadhaarNumber)),
		"request_id", requestcontext.RequestID(ctx),
		"trace_id", tracer.TraceID(ctx),
	)
	return &Result{ID: id, Record: record, Document: document}, nil
}

// Record returns the stored record with its id.
func (s *Service) Record(ctx context.Context, id int64) (models.Record, error) {
	record, err := s.store.FindRecord(ctx, id)
	if err != nil {
		return models.Record{}, s.lookupError(ctx, id, err)
	}
	return record.WithID(id), nil
}

// StoredDocument returns the bytes persisted at insert time.
func (s *Service) StoredDocument(ctx context.Context, id int64) ([]byte, error) {
	doc, err := s.store.FindDocument(ctx, id)
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}
	return doc, nil
}

// Document re-renders the stored record, consulting the cache first.
// Concurrent misses for the same id render once.
func (s *Service) Document(ctx context.Context, id int64) (_ []byte, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDocument, tracer.Int64(tracer.AttrCertificateID, id))
	defer func() { span.End(ignoreNotFound(err)) }()

	if doc, ok := s.cachedDocument(ctx, id); ok {
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		return doc, nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	unlock := s.renderLocks.Lock(strconv.FormatInt(id, 10))
	defer unlock()

	if doc, ok := s.cachedDocument(ctx, id); ok {
		return doc, nil
	}

	record, err := s.store.FindRecord(ctx, id)
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}
	doc, err := s.render(ctx, record)
	if err != nil {
		return nil, s.translate(ctx, StageRendered, err)
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, id, doc); err != nil {
			s.logger.WarnContext(ctx, "failed to cache document",
				"certificate_id", id,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	return doc, nil
}

// List returns certificate summaries newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Summary, error) {
	out, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, s.translate(ctx, StageStored, err)
	}
	if out == nil {
		out = []models.Summary{}
	}
	return out, nil
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) render(ctx context.Context, record models.Record) (doc []byte, err error) {
	_, span := s.tracer.Start(ctx, tracer.SpanRender)
	defer func() { span.End(err) }()

	start := time.Now()
	doc, err = s.renderer.Render(record)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveRender(start, len(doc))
	span.SetAttributes(tracer.Int(tracer.AttrDocumentBytes, len(doc)))
	return doc, nil
}

func (s *Service) insert(ctx context.Context, record models.Record, document []byte) (id int64, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanStore)
	defer func() { span.End(err) }()
	return s.store.Insert(ctx, record, document)
}

func (s *Service) cachedDocument(ctx context.Context, id int64) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	doc, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.metrics.IncrementCache("error")
		s.logger.WarnContext(ctx, "document cache unavailable",
			"certificate_id", id,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, false
	}
	if !ok {
		s.metrics.IncrementCache("miss")
		return nil, false
	}
	s.metrics.IncrementCache("hit")
	return doc, true
}

func (s *Service) notifyAsync(ctx context.Context, event models.CreationEvent) {
	if s.publisher == nil {
		return
	}
	s.inflight.Add(1)
	s.metrics.NotifyStarted()
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer s.inflight.Done()
		defer s.metrics.NotifyFinished()

		ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()
		ctx, span := s.tracer.Start(ctx, tracer.SpanNotify, tracer.Int64(tracer.AttrCertificateID, event.ID))

		err := s.publisher.Publish(ctx, event)
		span.End(err)
		if err != nil {
			s.metrics.IncrementNotification("failed")
			s.logger.WarnContext(ctx, "creation event not published",
				"certificate_id", event.ID,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			return
		}
		s.metrics.IncrementNotification("sent")
		s.enter(StageNotified)
	}()
}

func (s *Service) enter(stage Stage) {
	s.metrics.IncrementStage(string(stage))
}

// fail records a pipeline failure and returns the caller-visible error.
func (s *Service) fail(ctx context.Context, stage Stage, err error) error {
	s.metrics.IncrementFailure(string(stage))
	return s.translate(ctx, stage, err)
}

func (s *Service) translate(ctx context.Context, stage Stage, err error) error {
	requestID := requestcontext.RequestID(ctx)
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		s.logger.WarnContext(ctx, "submission rejected", "stage", stage, "error", err, "request_id", requestID)
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.WarnContext(ctx, "pipeline stage timed out", "stage", stage, "error", err, "request_id", requestID)
		return dErrors.Wrap(err, dErrors.CodeTimeout, "certificate request timed out")
	case errors.Is(err, models.ErrRenderFailure):
		s.logger.ErrorContext(ctx, "pipeline stage failed", "stage", stage, "error", err, "request_id", requestID)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to render certificate")
	default:
		s.logger.ErrorContext(ctx, "pipeline stage failed", "stage", stage, "error", err, "request_id", requestID)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
	}
}

func ignoreNotFound(err error) error {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil
	}
	return err
}

func (s *Service) lookupError(ctx context.Context, id int64, err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "certificate not found")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.WarnContext(ctx, "certificate lookup timed out",
			"certificate_id", id,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeTimeout, "certificate request timed out")
	}
	s.logger.ErrorContext(ctx, "certificate lookup failed",
		"certificate_id", id,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
}
