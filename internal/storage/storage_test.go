package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/affiliate-ops/internal/config"
)

type sample struct {
	Channel string  `json:"channel"`
	Revenue float64 `json:"revenue"`
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(context.Background(), config.AWSConfig{LocalArchivePath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestNew_Local(t *testing.T) {
	s := newTestStorage(t)
	assert.Equal(t, "local", s.Backend())
	assert.Nil(t, s.aws)
}

func TestSaveAndLoadReport_Local(t *testing.T) {
	s := newTestStorage(t)
	s.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	ref, err := s.SaveReport(ctx, "channel", "2026-01 week/5", []sample{{"tiktok", 120.5}})
	require.NoError(t, err)
	assert.Equal(t, "reports/channel/2026/02/01/2026-01_week_5.json", ref.Key)

	var got []sample
	require.NoError(t, s.LoadReport(ctx, ref.Key, &got))
	assert.Equal(t, []sample{{"tiktok", 120.5}}, got)

	err = s.LoadReport(ctx, "reports/channel/missing.json", &got)
	assert.ErrorIs(t, err, ErrReportNotFound)

	err = s.LoadReport(ctx, "../../etc/passwd", &got)
	assert.Error(t, err)
}

func TestListReports_Local(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		_, err := s.SaveReport(ctx, "niche", name, sample{})
		require.NoError(t, err)
	}

	refs, err := s.ListReports(ctx, "niche", 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "c", refs[0].Name)
	assert.Equal(t, "b", refs[1].Name)

	refs, err = s.ListReports(ctx, "format", 0)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	s1, err := New(context.Background(), config.AWSConfig{LocalArchivePath: dir})
	require.NoError(t, err)
	_, err = s1.SaveReport(context.Background(), "campaign", "weekly", sample{Channel: "reels"})
	require.NoError(t, err)

	s2, err := New(context.Background(), config.AWSConfig{LocalArchivePath: dir})
	require.NoError(t, err)
	refs, err := s2.ListReports(context.Background(), "campaign", 0)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "weekly", refs[0].Name)
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.objects[aws.ToString(in.Key)]))}, nil
}

type fakeDynamo struct {
	items []map[string]types.AttributeValue
	query *dynamodb.QueryInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.query = in
	return &dynamodb.QueryOutput{Items: f.items}, nil
}

func TestAWSStorage(t *testing.T) {
	s3c := &fakeS3{objects: map[string][]byte{}}
	ddb := &fakeDynamo{}
	s := NewWithAWS(&AWSStorage{dynamoDB: ddb, s3Client: s3c, tableName: "reports", bucket: "bucket"})
	s.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	ref, err := s.SaveReport(ctx, "channel", "daily", []sample{{"grupo", 10}})
	require.NoError(t, err)
	assert.Equal(t, "aws", s.Backend())
	assert.Contains(t, s3c.objects, ref.Key)

	require.Len(t, ddb.items, 1)
	pk := ddb.items[0]["PK"].(*types.AttributeValueMemberS)
	assert.Equal(t, "REPORT#channel", pk.Value)

	refs, err := s.ListReports(ctx, "channel", 5)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ref, refs[0])
	assert.Equal(t, int32(5), aws.ToInt32(ddb.query.Limit))
	assert.False(t, aws.ToBool(ddb.query.ScanIndexForward))

	var got []sample
	require.NoError(t, s.LoadReport(ctx, ref.Key, &got))
	assert.Equal(t, []sample{{"grupo", 10}}, got)
}
