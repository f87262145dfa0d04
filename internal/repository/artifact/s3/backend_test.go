package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/artifacttest"
)

// fakeS3 keeps objects in memory and records PUT order.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.puts = append(f.puts, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	backend, err := New(fake, "models", "/jobrec/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := artifact.NewStore(backend, zap.NewNop())

	b := artifacttest.NewBundle(t)
	m, err := s.Save(ctx, b)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if last := fake.puts[len(fake.puts)-1]; last != "jobrec/CURRENT" {
		t.Errorf("last PUT = %q, want jobrec/CURRENT", last)
	}
	if _, ok := fake.objects["models/jobrec/versions/"+m.Version+"/"+artifact.PartManifest]; !ok {
		t.Error("manifest object missing")
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Matrix, b.Matrix) || !reflect.DeepEqual(got.Corpus, b.Corpus) {
		t.Error("bundle differs after s3 round trip")
	}
}

func TestBackend_NoSuchKey(t *testing.T) {
	backend, err := New(newFakeS3(), "models", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := backend.CurrentVersion(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(newFakeS3(), "", "x"); err == nil {
		t.Fatal("expected error")
	}
}
