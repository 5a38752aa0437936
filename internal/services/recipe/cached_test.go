package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/sizzle/internal/recipes"
)

type mapCache map[string]*recipes.Recipe

func (c mapCache) Get(_ context.Context, query string) (*recipes.Recipe, bool) {
	r, ok := c[query]
	return r, ok
}

func (c mapCache) Set(_ context.Context, query string, r *recipes.Recipe) {
	c[query] = r
}

func TestNewCachingProvider_NilCache(t *testing.T) {
	next := &MockProvider{name: "openai"}
	assert.Same(t, next, NewCachingProvider(next, nil))
}

func TestCachingProvider(t *testing.T) {
	next := &MockProvider{name: "openai"}
	want := &recipes.Recipe{Title: "Omelette"}
	next.On("GenerateRecipe", mock.Anything, "omelette").Return(want, nil).Once()

	cache := mapCache{}
	p := NewCachingProvider(next, cache)

	first, err := p.GenerateRecipe(context.Background(), "omelette")
	require.NoError(t, err)
	second, err := p.GenerateRecipe(context.Background(), "omelette")
	require.NoError(t, err)

	assert.Same(t, want, first)
	assert.Same(t, want, second)
	assert.Contains(t, cache, "omelette")
	next.AssertNumberOfCalls(t, "GenerateRecipe", 1)
	assert.Equal(t, "openai", providerName(p, ""))
}

func TestCachingProvider_ErrorsAreNotCached(t *testing.T) {
	next := &MockProvider{name: "openai"}
	next.On("GenerateRecipe", mock.Anything, "omelette").Return(nil, errors.New("status 500"))

	cache := mapCache{}
	_, err := NewCachingProvider(next, cache).GenerateRecipe(context.Background(), "omelette")
	require.Error(t, err)
	assert.Empty(t, cache)
}
