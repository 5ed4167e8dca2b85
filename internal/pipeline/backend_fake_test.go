package pipeline

import (
	"context"
	"os"
	"sync"

	"github.com/goestools/goestow/internal/blob"
)

type fakeObject struct {
	size     int64
	metadata map[string]string
}

// fakeBackend is an in-memory blob.Backend for pipeline tests
type fakeBackend struct {
	mu           sync.Mutex
	objects      map[string]fakeObject
	puts         int
	failNextPuts int
	headSizes    map[string]int64 // per-key override of the reported size
	ensureErr    error
	ensureCalls  int
	putBlock     chan struct{} // when set, PutFile waits for ctx or a receive
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		objects:   make(map[string]fakeObject),
		headSizes: make(map[string]int64),
	}
}

func (f *fakeBackend) PutFile(ctx context.Context, params *blob.PutFileParams) (*blob.PutFileResponse, error) {
	f.mu.Lock()
	f.puts++
	fail := f.failNextPuts > 0
	if fail {
		f.failNextPuts--
	}
	block := f.putBlock
	f.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if fail {
		return nil, errSimulatedPut
	}

	info, err := os.Stat(params.FilePath)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(params.Metadata))
	for k, v := range params.Metadata {
		metadata[k] = v
	}

	f.mu.Lock()
	f.objects[params.Key] = fakeObject{size: info.Size(), metadata: metadata}
	f.mu.Unlock()

	return &blob.PutFileResponse{Key: params.Key, ETag: "fake"}, nil
}

func (f *fakeBackend) Head(ctx context.Context, key string) (*blob.HeadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[key]
	if !ok {
		return nil, blob.ErrObjectNotFound
	}
	size := obj.size
	if override, ok := f.headSizes[key]; ok {
		size = override
	}
	return &blob.HeadResponse{Size: size, ETag: "fake"}, nil
}

func (f *fakeBackend) EnsureBucket(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	return f.ensureErr
}

func (f *fakeBackend) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *fakeBackend) object(key string) (fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	return obj, ok
}

var _ blob.Backend = (*fakeBackend)(nil)
