package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestLocalDir_CommitPublishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d, err := NewLocalDir(dir)
	require.NoError(t, err)

	a, err := d.Create(context.Background(), "model_L1.ifc")
	require.NoError(t, err)
	_, err = io.WriteString(a, "content")
	require.NoError(t, err)

	_, statErr := os.Stat(d.Location("model_L1.ifc"))
	assert.ErrorIs(t, statErr, os.ErrNotExist, "not visible before commit")

	require.NoError(t, a.Commit(context.Background()))
	data, err := os.ReadFile(d.Location("model_L1.ifc"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.Equal(t, []string{"model_L1.ifc"}, listDir(t, dir))

	require.NoError(t, a.Abort(), "abort after commit is a no-op")
	assert.FileExists(t, d.Location("model_L1.ifc"))
}

func TestLocalDir_AbortRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	d, err := NewLocalDir(dir)
	require.NoError(t, err)

	a, err := d.Create(context.Background(), "x.ifc")
	require.NoError(t, err)
	_, err = io.WriteString(a, "half")
	require.NoError(t, err)

	require.NoError(t, a.Abort())
	assert.Empty(t, listDir(t, dir))
	require.NoError(t, a.Abort())
}

func TestLocalDir_CommitAfterCancel(t *testing.T) {
	dir := t.TempDir()
	d, err := NewLocalDir(dir)
	require.NoError(t, err)
	a, err := d.Create(context.Background(), "x.ifc")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.Commit(ctx), context.Canceled)
	require.NoError(t, a.Abort())
	assert.Empty(t, listDir(t, dir))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) != aws.ToInt64(in.ContentLength) {
		return nil, errors.New("content length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3_CommitUploads(t *testing.T) {
	tmp := t.TempDir()
	client := &fakeS3{}
	s := NewS3(client, "bucket", "/runs/a/", tmp)
	assert.Equal(t, "s3://bucket/runs/a/m.ifc", s.Location("m.ifc"))

	a, err := s.Create(context.Background(), "m.ifc")
	require.NoError(t, err)
	_, err = io.WriteString(a, "ISO-10303-21;")
	require.NoError(t, err)
	require.NoError(t, a.Commit(context.Background()))

	assert.Equal(t, map[string]string{"bucket/runs/a/m.ifc": "ISO-10303-21;"}, client.objects)
	assert.Empty(t, listDir(t, tmp), "staging file removed")
}

func TestS3_FailedUploadLeavesNothing(t *testing.T) {
	tmp := t.TempDir()
	client := &fakeS3{err: errors.New("boom")}
	s := NewS3(client, "bucket", "", tmp)

	a, err := s.Create(context.Background(), "m.ifc")
	require.NoError(t, err)
	_, err = io.WriteString(a, "data")
	require.NoError(t, err)

	err = a.Commit(context.Background())
	assert.ErrorContains(t, err, "failed to upload m.ifc to S3: boom")
	assert.Empty(t, listDir(t, tmp))
	assert.Empty(t, client.objects)
	require.NoError(t, a.Abort())
}

func TestParseS3URL(t *testing.T) {
	testCases := []struct {
		in             string
		bucket, prefix string
		ok             bool
	}{
		{"s3://b/p/q", "b", "p/q", true},
		{"s3://b", "b", "", true},
		{"s3://b/", "b", "", true},
		{"s3:///x", "", "", false},
		{"/tmp/out", "", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			bucket, prefix, ok := ParseS3URL(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.bucket, bucket)
			assert.Equal(t, tc.prefix, prefix)
		})
	}
}
