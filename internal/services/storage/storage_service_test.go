package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	input *s3.PutObjectInput
	body  string
}

func (m *mockS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.input = input
	b, _ := io.ReadAll(input.Body)
	m.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6f1c9a3e-0000-4000-8000-000000000001")
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, id.String()+"/1700000000123_my_licence.png", ObjectKey(id, "my licence.png", at))
	assert.Equal(t, id.String()+"/1700000000123_passwd", ObjectKey(id, "../../etc/passwd", at))
}

func TestAllowed(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.gif", "e.mp4", "f.pdf"} {
		assert.True(t, Allowed(name), name)
	}
	for _, name := range []string{"a.exe", "b", "c.svg"} {
		assert.False(t, Allowed(name), name)
	}
}

func TestS3StorePut(t *testing.T) {
	m := &mockS3{}
	s := &S3Store{cfg: S3Config{Bucket: "choreista", Region: "us-east-1"}, client: m}

	url, err := s.Put(context.Background(), "u/1_a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://choreista.s3.us-east-1.amazonaws.com/u/1_a.png", url)
	assert.Equal(t, "choreista", *m.input.Bucket)
	assert.Equal(t, "u/1_a.png", *m.input.Key)
	assert.Equal(t, "image/png", *m.input.ContentType)
	assert.Equal(t, "png", m.body)

	s.cfg.PublicBaseURL = "https://cdn.example.com/"
	assert.Equal(t, "https://cdn.example.com/u/1_a.png", s.URL("u/1_a.png"))
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	s := &LocalStore{Dir: dir}

	url, err := s.Put(context.Background(), "u/1_a.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/u/1_a.txt", url)

	b, err := os.ReadFile(filepath.Join(dir, "u", "1_a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}
