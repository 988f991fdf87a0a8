//go:build integration

package objectstore_test

import (
	"bytes"
	"context"
	"testing"

	"civreg/internal/platform/objectstore"
	"civreg/pkg/testutil/containers"

	"github.com/stretchr/testify/suite"
)

type ObjectStoreIntegrationSuite struct {
	suite.Suite
	client *objectstore.Client
}

func TestObjectStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ObjectStoreIntegrationSuite))
}

func (s *ObjectStoreIntegrationSuite) SetupSuite() {
	m := containers.GetManager().GetMinio(s.T())
	client, err := objectstore.New(m.Config("aadhaar-uploads"))
	s.Require().NoError(err)
	s.client = client
}

func (s *ObjectStoreIntegrationSuite) TestEnsureBucketIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.client.EnsureBucket(ctx))
	s.Require().NoError(s.client.EnsureBucket(ctx))
	s.NoError(s.client.Health(ctx))
}

func (s *ObjectStoreIntegrationSuite) TestPutStoresObject() {
	ctx := context.Background()
	s.Require().NoError(s.client.EnsureBucket(ctx))

	content := []byte("scan-bytes")
	obj, err := s.client.Put(ctx, "mother.png", bytes.NewReader(content), int64(len(content)), "image/png")
	s.Require().NoError(err)
	s.Equal("aadhaar-uploads", obj.Bucket)
	s.Equal("mother.png", obj.Key)
	s.Equal(int64(len(content)), obj.Size)
	s.NotEmpty(obj.ETag)
}
