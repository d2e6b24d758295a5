package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	key := ObjectKey(42, "Manual.PDF", now)

	assert.True(t, strings.HasPrefix(key, "items/42/2026/03/"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"), key)
	assert.NotEqual(t, key, ObjectKey(42, "Manual.PDF", now))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.pdf", ""))
	assert.Equal(t, "text/csv", ContentType("a.pdf", "text/csv"))
	assert.Equal(t, "application/octet-stream", ContentType("noext", "application/octet-stream"))
}

func TestLocalStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/media/")
	require.NoError(t, err)

	att, err := Upload(context.Background(), store, 7, "sheet.pdf", "", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "sheet.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.MIME)
	assert.Equal(t, int64(8), att.Size)
	assert.Equal(t, "/media/"+att.Key, att.URL)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(att.Key)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(context.Background(), att.Key))
	require.NoError(t, store.Delete(context.Background(), att.Key), "deleting twice is fine")
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.txt", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	_, _ = io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreURLs(t *testing.T) {
	client := &fakeS3{}
	store := &S3Store{Client: client, Bucket: "lend", Region: "eu-south-1"}

	url, err := store.Put(context.Background(), "items/1/a.pdf", strings.NewReader("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://lend.s3.eu-south-1.amazonaws.com/items/1/a.pdf", url)
	require.Len(t, client.puts, 1)
	assert.Equal(t, "application/pdf", aws.ToString(client.puts[0].ContentType))

	store.CloudFrontDomain = "cdn.example.org"
	assert.Equal(t, "https://cdn.example.org/items/1/a.pdf", store.URL("items/1/a.pdf"))

	require.NoError(t, store.Delete(context.Background(), "items/1/a.pdf"))
	assert.Equal(t, []string{"items/1/a.pdf"}, client.deletes)
}
