package service

//go:generate mockgen -source=contracts.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"civreg/internal/certificate/models"
	"civreg/internal/certificate/normalizer"
	"civreg/internal/certificate/render"
	"civreg/internal/certificate/service/mocks"
	"civreg/internal/certificate/store"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/platform/tracer"
	"civreg/pkg/testutil"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// PipelineSuite runs submissions through the real normalizer, renderer and
// in-memory store.
type PipelineSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	publisher *mocks.MockPublisher
	store     *store.InMemory
	service   *Service
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.store = store.NewInMemory()
	s.service = New(normalizer.New(), render.New(), s.store, WithPublisher(s.publisher))
}

func (s *PipelineSuite) TearDownTest() {
	s.Require().NoError(s.service.Wait(context.Background()))
	s.ctrl.Finish()
}

func submission(fields []byte) normalizer.Submission {
	return normalizer.Submission{Fields: fields}
}

func (s *PipelineSuite) TestSubmitStoresAndRenders() {
	ctx := context.Background()
	input := testutil.NewRegistration().Build()

	published := make(chan models.CreationEvent, 1)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e models.CreationEvent) error {
			published <- e
			return nil
		})

	res, err := s.service.Submit(ctx, submission(testutil.NewRegistration().JSON()), RenderAtInsert)
	s.Require().NoError(err)
	s.Equal(int64(1), res.ID)
	for _, want := range []string{"Asha", "Rao", "2024-01-01", "Pune"} {
		s.Contains(string(res.Document), want)
	}

	record, err := s.service.Record(ctx, res.ID)
	s.Require().NoError(err)
	s.True(input.WithID(1).Equal(record), "stored record should equal the submission plus id")

	stored, err := s.service.StoredDocument(ctx, res.ID)
	s.Require().NoError(err)
	s.Equal(res.Document, stored)

	select {
	case e := <-published:
		s.Equal(int64(1), e.ID)
		s.True(input.Equal(e.Record))
	case <-time.After(time.Second):
		s.Fail("creation event was not published")
	}
}

func (s *PipelineSuite) TestRenderAtRetrieval() {
	ctx := context.Background()
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := s.service.Submit(ctx, submission(testutil.NewRegistration().JSON()), RenderAtRetrieval)
	s.Require().NoError(err)
	s.Nil(res.Document)

	_, err = s.service.StoredDocument(ctx, res.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	doc, err := s.service.Document(ctx, res.ID)
	s.Require().NoError(err)
	s.Contains(string(doc), "First Name: Asha")
	s.Contains(string(doc), "(Middle Name: )")
}

func (s *PipelineSuite) TestSequentialIDs() {
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	for want := int64(1); want <= 3; want++ {
		res, err := s.service.Submit(context.Background(), submission(testutil.NewRegistration().JSON()), RenderAtRetrieval)
		s.Require().NoError(err)
		s.Equal(want, res.ID)
	}

	list, err := s.service.List(context.Background(), 10, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(int64(3), list[0].ID)
}

func (s *PipelineSuite) TestUnknownIDIsNotFound() {
	ctx := context.Background()

	_, err := s.service.Record(ctx, 999999)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Document(ctx, 999999)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PipelineSuite) TestFailingNotifierDoesNotAffectOutcome() {
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: broker down", models.ErrNotificationFailure))

	res, err := s.service.Submit(context.Background(), submission(testutil.NewRegistration().JSON()), RenderAtInsert)
	s.Require().NoError(err)
	s.Equal(int64(1), res.ID)
	s.NotEmpty(res.Document)
}

func (s *PipelineSuite) TestSlowNotifierDoesNotBlockSubmit() {
	release := make(chan struct{})
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ models.CreationEvent) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.service.Submit(context.Background(), submission(testutil.NewRegistration().JSON()), RenderAtInsert)
		s.NoError(err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("submit waited for the notifier")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.service.Wait(ctx), context.DeadlineExceeded)

	close(release)
}

func (s *PipelineSuite) TestNotifyTimeoutBoundsPublish() {
	s.service = New(normalizer.New(), render.New(), s.store,
		WithPublisher(s.publisher),
		WithNotifyTimeout(20*time.Millisecond),
	)
	got := make(chan error, 1)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ models.CreationEvent) error {
			<-ctx.Done()
			got <- ctx.Err()
			return fmt.Errorf("%w: %w", models.ErrNotificationFailure, ctx.Err())
		})

	res, err := s.service.Submit(context.Background(), submission(testutil.NewRegistration().JSON()), RenderAtInsert)
	s.Require().NoError(err)
	s.Equal(int64(1), res.ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(s.service.Wait(ctx))
	s.ErrorIs(<-got, context.DeadlineExceeded)
}

func (s *PipelineSuite) TestNotifyContextOutlivesRequest() {
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ models.CreationEvent) error {
			got <- ctx.Err()
			return nil
		})

	_, err := s.service.Submit(ctx, submission(testutil.NewRegistration().JSON()), RenderAtRetrieval)
	cancel()
	s.Require().NoError(err)
	s.Require().NoError(s.service.Wait(context.Background()))
	s.NoError(<-got)
}

func (s *PipelineSuite) TestRejectedSubmissionsStoreNothing() {
	cases := []struct {
		name   string
		fields []byte
		msg    string
	}{
		{"empty", nil, "no fields"},
		{"malformed", []byte(`{"firstName":`), "invalid input"},
		{"not an object", []byte(`["Asha"]`), "invalid input"},
		{"missing first name", testutil.NewRegistration().Without(models.FieldFirstName).JSON(), "firstName is required"},
		{"blank last name", testutil.NewRegistration().WithString(models.FieldLastName, "  ").JSON(), "lastName"},
		{"consent withheld", testutil.NewRegistration().With(models.FieldAadhaarConsentGiven, models.Bool(false)).JSON(), "aadhaarConsentGiven"},
		{"consent as string", testutil.NewRegistration().WithString(models.FieldAadhaarConsentGiven, "true").JSON(), "aadhaarConsentGiven"},
		{"client id", testutil.NewRegistration().With(models.FieldID, models.Int(7)).JSON(), "id"},
		{"long field name", testutil.NewRegistration().WithString(strings.Repeat("x", 65), "v").JSON(), "field name exceeds max length"},
		{"too many fields", manyFields(70), "too many fields"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Submit(context.Background(), submission(tc.fields), RenderAtInsert)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
			s.Contains(err.Error(), tc.msg)
		})
	}

	list, err := s.service.List(context.Background(), 10, 0)
	s.Require().NoError(err)
	s.Empty(list)
}

func manyFields(n int) []byte {
	b := testutil.NewRegistration()
	for i := range n {
		b.WithString(fmt.Sprintf("extra%d", i), "v")
	}
	return b.JSON()
}

// ServiceSuite isolates the coordinator with mocked components.
type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	normalizer *mocks.MockNormalizer
	renderer   *mocks.MockRenderer
	store      *mocks.MockStore
	cache      *mocks.MockDocumentCache
	service    *Service
	record     models.Record
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.normalizer = mocks.NewMockNormalizer(s.ctrl)
	s.renderer = mocks.NewMockRenderer(s.ctrl)
	s.store = mocks.NewMockStore(s.ctrl)
	s.cache = mocks.NewMockDocumentCache(s.ctrl)
	s.service = New(s.normalizer, s.renderer, s.store, WithDocumentCache(s.cache))
	s.record = testutil.NewRegistration().Build()
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestRenderFailureStoresNothing() {
	s.normalizer.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(normalizer.Result{Record: s.record}, nil)
	s.renderer.EXPECT().Render(gomock.Any()).Return(nil, fmt.Errorf("%w: font missing", models.ErrRenderFailure))

	_, err := s.service.Submit(context.Background(), submission([]byte(`{}`)), RenderAtInsert)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, models.ErrRenderFailure)
	s.Equal("failed to render certificate", err.Error())
}

func (s *ServiceSuite) TestStorageFailureIsInternal() {
	s.normalizer.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(normalizer.Result{Record: s.record}, nil)
	s.renderer.EXPECT().Render(gomock.Any()).Return([]byte("%PDF-1.3"), nil)
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any(), []byte("%PDF-1.3")).
		Return(int64(0), fmt.Errorf("%w: connection refused", models.ErrStorageFailure))

	_, err := s.service.Submit(context.Background(), submission([]byte(`{}`)), RenderAtInsert)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, models.ErrStorageFailure)
}

func (s *ServiceSuite) TestStorageDeadlineIsTimeout() {
	s.normalizer.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(normalizer.Result{Record: s.record}, nil)
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(int64(0), fmt.Errorf("%w: insert certificate: %w", models.ErrStorageFailure, context.DeadlineExceeded))

	_, err := s.service.Submit(context.Background(), submission([]byte(`{}`)), RenderAtRetrieval)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Equal("certificate request timed out", err.Error())
}

func (s *ServiceSuite) TestNoPublisherSkipsNotification() {
	s.normalizer.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(normalizer.Result{Record: s.record}, nil)
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Nil()).Return(int64(4), nil)

	res, err := s.service.Submit(context.Background(), submission([]byte(`{}`)), RenderAtRetrieval)
	s.Require().NoError(err)
	s.Equal(int64(4), res.ID)
}

func (s *ServiceSuite) TestDocumentCacheHit() {
	s.cache.EXPECT().Get(gomock.Any(), int64(3)).Return([]byte("cached"), true, nil)

	doc, err := s.service.Document(context.Background(), 3)
	s.Require().NoError(err)
	s.Equal([]byte("cached"), doc)
}

func (s *ServiceSuite) TestDocumentCacheMissRendersAndStores() {
	s.cache.EXPECT().Get(gomock.Any(), int64(3)).Return(nil, false, nil).Times(2)
	s.store.EXPECT().FindRecord(gomock.Any(), int64(3)).Return(s.record, nil)
	s.renderer.EXPECT().Render(s.record).Return([]byte("%PDF"), nil)
	s.cache.EXPECT().Put(gomock.Any(), int64(3), []byte("%PDF")).Return(nil)

	doc, err := s.service.Document(context.Background(), 3)
	s.Require().NoError(err)
	s.Equal([]byte("%PDF"), doc)
}

func (s *ServiceSuite) TestDocumentCacheErrorsAreNotFatal() {
	s.cache.EXPECT().Get(gomock.Any(), int64(3)).Return(nil, false, errors.New("redis down")).Times(2)
	s.store.EXPECT().FindRecord(gomock.Any(), int64(3)).Return(s.record, nil)
	s.renderer.EXPECT().Render(gomock.Any()).Return([]byte("%PDF"), nil)
	s.cache.EXPECT().Put(gomock.Any(), int64(3), gomock.Any()).Return(errors.New("redis down"))

	doc, err := s.service.Document(context.Background(), 3)
	s.Require().NoError(err)
	s.Equal([]byte("%PDF"), doc)
}

func (s *ServiceSuite) TestLookupStorageFailure() {
	s.store.EXPECT().FindRecord(gomock.Any(), int64(3)).
		Return(models.Record{}, fmt.Errorf("%w: timeout", models.ErrStorageFailure))

	_, err := s.service.Record(context.Background(), 3)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.False(errors.Is(err, sentinel.ErrNotFound))
}

func (s *ServiceSuite) TestLookupDeadlineIsTimeout() {
	s.store.EXPECT().FindDocument(gomock.Any(), int64(3)).
		Return(nil, fmt.Errorf("%w: find certificate document: %w", models.ErrStorageFailure, context.DeadlineExceeded))

	_, err := s.service.StoredDocument(context.Background(), 3)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *ServiceSuite) TestListNeverNil() {
	s.store.EXPECT().List(gomock.Any(), 20, 0).Return(nil, nil)

	out, err := s.service.List(context.Background(), 20, 0)
	s.Require().NoError(err)
	s.NotNil(out)
	s.Empty(out)
}

type recordedSpan struct {
	name  string
	attrs map[string]any
	err   error
}

// recordingTracer keeps ended spans in end order.
type recordingTracer struct {
	mu    sync.Mutex
	ended []recordedSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, attrs ...tracer.Attribute) (context.Context, tracer.Span) {
	sp := &recordingSpan{t: t, rec: recordedSpan{name: name, attrs: map[string]any{}}}
	sp.SetAttributes(attrs...)
	return ctx, sp
}

func (t *recordingTracer) spans() []recordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]recordedSpan(nil), t.ended...)
}

type recordingSpan struct {
	t   *recordingTracer
	rec recordedSpan
}

func (s *recordingSpan) End(err error) {
	s.rec.err = err
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.t.ended = append(s.t.ended, s.rec)
}

func (s *recordingSpan) SetAttributes(attrs ...tracer.Attribute) {
	for _, a := range attrs {
		s.rec.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) AddEvent(string, ...tracer.Attribute) {}

func (s *ServiceSuite) TestSubmitSpans() {
	rec := &recordingTracer{}
	svc := New(s.normalizer, s.renderer, s.store, WithTracer(rec))

	s.normalizer.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(normalizer.Result{Record: s.record}, nil)
	s.renderer.EXPECT().Render(gomock.Any()).Return([]byte("%PDF"), nil)
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(9), nil)

	_, err := svc.Submit(context.Background(), submission([]byte(`{}`)), RenderAtInsert)
	s.Require().NoError(err)

	spans := rec.spans()
	s.Require().Len(spans, 3)
	s.Equal(tracer.SpanRender, spans[0].name)
	s.Equal(4, spans[0].attrs[tracer.AttrDocumentBytes])
	s.Equal(tracer.SpanStore, spans[1].name)
	s.Equal(tracer.SpanSubmit, spans[2].name)
	s.Equal("render_at_insert", spans[2].attrs[tracer.AttrRenderPolicy])
	s.Equal(int64(9), spans[2].attrs[tracer.AttrCertificateID])
	s.NoError(spans[2].err)
}

func (s *ServiceSuite) TestDocumentNotFoundSpanIsNotAnError() {
	rec := &recordingTracer{}
	svc := New(s.normalizer, s.renderer, s.store, WithTracer(rec))
	s.store.EXPECT().FindRecord(gomock.Any(), int64(5)).Return(models.Record{}, sentinel.ErrNotFound)

	_, err := svc.Document(context.Background(), 5)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	spans := rec.spans()
	s.Require().Len(spans, 1)
	s.Equal(tracer.SpanDocument, spans[0].name)
	s.Equal(false, spans[0].attrs[tracer.AttrCacheHit])
	s.NoError(spans[0].err)
}
