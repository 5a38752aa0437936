//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/socialchef/sizzle/internal/recipes"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRecipeCache_Redis(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, setupRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewRecipeCache(client, time.Minute)
	c.Set(ctx, "Test Omelette", &recipes.Recipe{
		Title:    "Test Omelette",
		Servings: 2,
		Steps:    []recipes.Step{{StepNumber: 1, Instruction: "Beat the eggs."}},
	})

	got, ok := c.Get(ctx, "  test   omelette ")
	require.True(t, ok)
	assert.Equal(t, "Test Omelette", got.Title)
	assert.Equal(t, 2, got.Servings)
	require.Len(t, got.Steps, 1)

	ttl, err := client.TTL(ctx, c.Key("test omelette")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, "test omelette"))
	_, ok = c.Get(ctx, "test omelette")
	assert.False(t, ok)
}
