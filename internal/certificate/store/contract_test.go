package store

import (
	"context"
	"time"

	"civreg/internal/certificate/models"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
	"civreg/pkg/testutil"

	"github.com/stretchr/testify/suite"
)

// Store is the contract both implementations satisfy.
type Store interface {
	Insert(ctx context.Context, record models.Record, document []byte) (int64, error)
	FindRecord(ctx context.Context, id int64) (models.Record, error)
	FindDocument(ctx context.Context, id int64) ([]byte, error)
	List(ctx context.Context, limit, offset int) ([]models.Summary, error)
}

// ContractSuite runs the shared store behaviour against a fresh store per test.
type ContractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
}

func (s *ContractSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *ContractSuite) TestRoundTripsEveryScalarKind() {
	record := testutil.NewRegistration().
		With(models.FieldMiddleName, models.Null()).
		With("weightKg", mustNumber("3.20")).
		With("birthOrder", models.Int(2)).
		Build()

	id, err := s.store.Insert(s.ctx, record, []byte("%PDF-1.3"))
	s.Require().NoError(err)

	got, err := s.store.FindRecord(s.ctx, id)
	s.Require().NoError(err)
	s.True(record.Equal(got), "stored record should equal input")

	doc, err := s.store.FindDocument(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]byte("%PDF-1.3"), doc)
}

func (s *ContractSuite) TestIdentitiesAreStrictlyIncreasing() {
	var last int64
	for range 5 {
		id, err := s.store.Insert(s.ctx, testutil.NewRegistration().Build(), nil)
		s.Require().NoError(err)
		s.Greater(id, last)
		last = id
	}
}

func (s *ContractSuite) TestConcurrentInsertsGetUniqueIdentities() {
	const n = 20
	ids := make(chan int64, n)
	res := testutil.RunConcurrent(n, func(int) error {
		id, err := s.store.Insert(s.ctx, testutil.NewRegistration().Build(), nil)
		if err == nil {
			ids <- id
		}
		return err
	})
	close(ids)

	s.Equal(int32(n), res.Successes)
	seen := map[int64]bool{}
	for id := range ids {
		s.False(seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func (s *ContractSuite) TestUnknownIdentityIsNotFound() {
	_, err := s.store.FindRecord(s.ctx, 999999)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindDocument(s.ctx, 999999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ContractSuite) TestMissingDocumentIsNotFound() {
	id, err := s.store.Insert(s.ctx, testutil.NewRegistration().Build(), nil)
	s.Require().NoError(err)

	_, err = s.store.FindDocument(s.ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindRecord(s.ctx, id)
	s.NoError(err)
}

func (s *ContractSuite) TestListNewestFirst() {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var ids []int64
	for i, name := range []string{"Asha", "Bina", "Chitra"} {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Minute))
		doc := []byte(nil)
		if i != 1 {
			doc = []byte("%PDF")
		}
		id, err := s.store.Insert(ctx, testutil.NewRegistration().WithString(models.FieldFirstName, name).Build(), doc)
		s.Require().NoError(err)
		ids = append(ids, id)
	}

	page, err := s.store.List(s.ctx, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(ids[2], page[0].ID)
	s.Equal("Chitra", page[0].Record.Text(models.FieldFirstName))
	s.True(page[0].HasDocument)
	s.Equal(ids[1], page[1].ID)
	s.False(page[1].HasDocument)

	rest, err := s.store.List(s.ctx, 10, 2)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal(ids[0], rest[0].ID)

	empty, err := s.store.List(s.ctx, 10, 3)
	s.Require().NoError(err)
	s.Empty(empty)
}

func mustNumber(lit string) models.Value {
	v, err := models.Number(lit)
	if err != nil {
		panic(err)
	}
	return v
}
