package s3

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kirillkom/meal-nutrition/internal/infrastructure/dataset"
)

const noSuchKeyXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

func isolateAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AWS_PROFILE", "")
}

func newObjectStore(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reference/foods.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"1","foods":{}}`))
		case "/reference/foods-latest":
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write([]byte("version: \"1\"\nfoods: {}\n"))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(noSuchKeyXML))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSource(t *testing.T, endpoint, key string) *Source {
	t.Helper()
	src, err := New(context.Background(), Options{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "reference",
		Key:             key,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return src
}

func TestNewRequiresBucketAndKey(t *testing.T) {
	if _, err := New(context.Background(), Options{Bucket: "reference"}); err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestFetchDownloadsObject(t *testing.T) {
	isolateAWSEnv(t)
	srv := newObjectStore(t)

	src := newTestSource(t, srv.URL, "foods.json")
	payload, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(payload.Data) != `{"version":"1","foods":{}}` {
		t.Fatalf("unexpected payload %q", payload.Data)
	}
	if payload.Format != dataset.FormatJSON || payload.Origin != "s3://reference/foods.json" {
		t.Fatalf("unexpected payload metadata %+v", payload)
	}
}

func TestFetchUsesContentTypeWithoutExtension(t *testing.T) {
	isolateAWSEnv(t)
	srv := newObjectStore(t)

	payload, err := newTestSource(t, srv.URL, "foods-latest").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if payload.Format != dataset.FormatYAML {
		t.Fatalf("expected yaml from content type, got %q", payload.Format)
	}
}

func TestFetchMissingKeyIsNotExist(t *testing.T) {
	isolateAWSEnv(t)
	srv := newObjectStore(t)

	_, err := newTestSource(t, srv.URL, "missing.json").Fetch(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}
