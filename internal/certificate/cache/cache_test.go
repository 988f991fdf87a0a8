package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type CacheSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	cache *DocumentCache
	ctx   context.Context
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })
	s.cache = New(client, "1", time.Hour)
	s.ctx = context.Background()
}

func (s *CacheSuite) TestMiss() {
	doc, ok, err := s.cache.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.False(ok)
	s.Nil(doc)
}

func (s *CacheSuite) TestPutThenGet() {
	s.Require().NoError(s.cache.Put(s.ctx, 7, []byte("%PDF-1.3 body")))

	doc, ok, err := s.cache.Get(s.ctx, 7)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal([]byte("%PDF-1.3 body"), doc)
	s.True(s.mr.Exists("certdoc:v1:7"))
}

func (s *CacheSuite) TestEntriesExpire() {
	s.Require().NoError(s.cache.Put(s.ctx, 7, []byte("%PDF")))
	s.Equal(time.Hour, s.mr.TTL("certdoc:v1:7"))

	s.mr.FastForward(time.Hour + time.Second)

	_, ok, err := s.cache.Get(s.ctx, 7)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CacheSuite) TestVersionIsolatesEntries() {
	s.Require().NoError(s.cache.Put(s.ctx, 7, []byte("%PDF")))

	other := New(redis.NewClient(&redis.Options{Addr: s.mr.Addr()}), "2", 0)
	_, ok, err := other.Get(s.ctx, 7)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(defaultTTL, other.ttl)
}

func (s *CacheSuite) TestServerErrorIsReturned() {
	s.mr.SetError("LOADING")
	_, _, err := s.cache.Get(s.ctx, 7)
	s.Error(err)
	s.Error(s.cache.Put(s.ctx, 7, []byte("x")))
}
