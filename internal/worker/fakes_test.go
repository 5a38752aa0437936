package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/socialchef/sizzle/internal/services/imagegen"
	"github.com/socialchef/sizzle/internal/utils"
)

type memoryObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	existsErr error
	uploadErr error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) Upload(_ context.Context, path string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.objects[path] = data
	m.types[path] = contentType
	return m.PublicURL(path), nil
}

func (m *memoryObjects) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.objects[path]
	return ok, nil
}

func (m *memoryObjects) PublicURL(path string) string {
	return "https://cdn.test/" + path
}

type fakeImages struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	failures int
	failWith error
	image    imagegen.Image
	delay    time.Duration
}

func (f *fakeImages) Name() string { return "fake" }

func (f *fakeImages) Generate(ctx context.Context, req imagegen.Request) (*imagegen.Image, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	fail := f.failures != 0 // negative fails forever
	if f.failures > 0 {
		f.failures--
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, f.failWith
	}
	img := f.image
	if img.Data == nil && img.URL == "" {
		img.Data = []byte("\x89PNG")
	}
	return &img, nil
}

func (f *fakeImages) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type imageUpdate struct {
	url    string
	prompt string
}

type fakeSteps struct {
	mu        sync.Mutex
	contexts  map[int64]*StepContext
	updates   map[int64]imageUpdate
	updateErr error
}

func newFakeSteps() *fakeSteps {
	return &fakeSteps{contexts: map[int64]*StepContext{}, updates: map[int64]imageUpdate{}}
}

func (f *fakeSteps) StepImageContext(_ context.Context, stepID int64) (*StepContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.contexts[stepID]
	if !ok {
		return nil, errors.New("step not found")
	}
	return sc, nil
}

func (f *fakeSteps) UpdateRecipeStepImage(_ context.Context, stepID int64, imageURL, prompt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[stepID] = imageUpdate{url: imageURL, prompt: prompt}
	return nil
}

func (f *fakeSteps) update(stepID int64) (imageUpdate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.updates[stepID]
	return u, ok
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ImageReady(ctx context.Context, recipeID int64, result Result) error {
	args := m.Called(ctx, recipeID, result)
	return args.Error(0)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

func fastRetry() utils.RetryConfig {
	cfg := utils.ImageRetryConfig(3)
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	return cfg
}
