package fileaccess

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3 keeps objects in memory. Methods not overridden panic through the
// nil embedded interface.
type mockS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Bucket+"/"+*input.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "not found", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*input.Bucket+"/"+*input.Key] = data
	return &s3.PutObjectOutput{ETag: aws.String("etag")}, nil
}

func TestParseLocation(t *testing.T) {
	bucket, key, isS3, err := ParseLocation("s3://hessi-data/2002/02/20/events.fits")
	require.NoError(t, err)
	assert.True(t, isS3)
	assert.Equal(t, "hessi-data", bucket)
	assert.Equal(t, "2002/02/20/events.fits", key)

	bucket, key, isS3, err = ParseLocation("/tmp/events.fits")
	require.NoError(t, err)
	assert.False(t, isS3)
	assert.Equal(t, "", bucket)
	assert.Equal(t, "/tmp/events.fits", key)

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, _, err := ParseLocation(bad)
		assert.True(t, errors.Is(err, ErrInvalidLocation), bad)
	}
}

func TestLocalAccess(t *testing.T) {
	dir := t.TempDir()
	fs := FSAccess{}

	require.NoError(t, fs.WriteObject(dir, "a/b/map.fits", []byte("SIMPLE")))
	data, err := fs.ReadObject(dir, "a/b/map.fits")
	require.NoError(t, err)
	assert.Equal(t, []byte("SIMPLE"), data)

	_, err = fs.ReadObject(dir, "missing.fits")
	assert.True(t, fs.IsNotFoundError(err))
}

func TestS3Access(t *testing.T) {
	mock := newMockS3()
	s3Access := MakeS3Access(mock)

	require.NoError(t, s3Access.WriteObject("bucket", "maps/out.fits", []byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3}, mock.objects["bucket/maps/out.fits"])

	data, err := s3Access.ReadObject("bucket", "maps/out.fits")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = s3Access.ReadObject("bucket", "maps/other.fits")
	assert.True(t, s3Access.IsNotFoundError(err))
	assert.False(t, s3Access.IsNotFoundError(errors.New("boom")))
}

func TestRouter(t *testing.T) {
	mock := newMockS3()
	router := &Router{Local: FSAccess{}, S3: MakeS3Access(mock)}

	local := filepath.Join(t.TempDir(), "out", "map.fits")
	require.NoError(t, router.Write(local, []byte("local")))
	require.NoError(t, router.Write("s3://bucket/map.fits", []byte("remote")))

	data, err := router.Read(local)
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))

	data, err = router.Read("s3://bucket/map.fits")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(data))

	_, err = router.Read("s3://bucket/absent.fits")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/absent.fits")
}

func TestRouterCreatesS3OnDemand(t *testing.T) {
	mock := newMockS3()
	calls := 0
	router := &Router{
		Local: FSAccess{},
		NewS3: func() (FileAccess, error) {
			calls++
			return MakeS3Access(mock), nil
		},
	}

	require.NoError(t, router.Write("s3://bucket/a", []byte("x")))
	require.NoError(t, router.Write("s3://bucket/b", []byte("y")))
	assert.Equal(t, 1, calls)

	_, err := (&Router{Local: FSAccess{}}).Read("s3://bucket/a")
	assert.True(t, errors.Is(err, ErrInvalidLocation))
}
