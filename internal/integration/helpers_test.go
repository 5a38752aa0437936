//go:build integration

// Package integration runs the HTTP surface, the recipe service and the
// in-process image dispatcher against a real Postgres. Image generation and
// object storage are replaced with in-memory fakes.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/socialchef/sizzle/internal/api"
	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/db"
	"github.com/socialchef/sizzle/internal/middleware"
	"github.com/socialchef/sizzle/internal/recipes"
	"github.com/socialchef/sizzle/internal/services/imagegen"
	"github.com/socialchef/sizzle/internal/utils"
	"github.com/socialchef/sizzle/internal/worker"
)

const testSecret = "integration-secret"

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "sizzle",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := db.NewPool(ctx, fmt.Sprintf("postgres://test:test@%s:%s/sizzle?sslmode=disable", host, port.Port()), db.PoolOptions{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return pool
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	return m.PublicURL(path), nil
}

func (m *memoryObjects) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok, nil
}

func (m *memoryObjects) PublicURL(path string) string {
	return "https://cdn.test/" + path
}

func (m *memoryObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type pngImages struct {
	mu      sync.Mutex
	prompts []string
}

func (p *pngImages) Name() string { return "png" }

func (p *pngImages) Generate(_ context.Context, req imagegen.Request) (*imagegen.Image, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()
	return &imagegen.Image{Data: []byte("\x89PNG"), ContentType: "image/png"}, nil
}

func (p *pngImages) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

// cannedProvider always returns the same recipe.
type cannedProvider struct {
	recipe recipes.Recipe
}

func (c cannedProvider) GenerateRecipe(context.Context, string) (*recipes.Recipe, error) {
	r := c.recipe
	return &r, nil
}

type harness struct {
	pool    *pgxpool.Pool
	service *recipes.Service
	objects *memoryObjects
	images  *pngImages
	handler http.Handler
	token   string
}

func newHarness(t *testing.T, provider cannedProvider) *harness {
	t.Helper()
	h := &harness{
		pool:    setupPostgres(t),
		objects: &memoryObjects{objects: map[string][]byte{}},
		images:  &pngImages{},
	}
	h.service = recipes.NewService(db.NewStore(h.pool))

	workers := worker.NewPool(3)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = workers.Shutdown(ctx)
	})
	retry := utils.ImageRetryConfig(1)
	retry.InitialDelay = time.Millisecond
	generator := worker.NewStepImageGenerator(h.objects, h.images, h.service, worker.WithRetryConfig(retry))
	h.service.SetDispatcher(worker.NewPoolDispatcher(workers, generator))

	cfg := &config.Config{
		ServiceName:       "sizzle-integration",
		ServiceVersion:    "test",
		SupabaseURL:       "https://integration.supabase.co",
		SupabaseJWTSecret: testSecret,
		Storage:           config.StorageConfig{Backend: "supabase"},
		Dispatcher:        config.DispatcherConfig{Mode: config.DispatchModePool, Capacity: 3, WaitTimeout: 30 * time.Second},
	}
	token, err := middleware.IssueToken(testSecret, middleware.Issuer(cfg.SupabaseURL), "chef", time.Hour)
	require.NoError(t, err)
	h.token = token
	h.handler = api.NewRouter(api.NewServer(cfg, h.service, provider, db.NewStore(h.pool)))
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
