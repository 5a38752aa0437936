//go:build integration

package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
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
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://test:test@%s:%s/sizzle?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, url, PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	// second run must be a no-op
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func TestStore_Integration(t *testing.T) {
	pool := setupPostgres(t)
	store := NewStore(pool)
	ctx := context.Background()

	t.Run("upsert ingredient is case insensitive", func(t *testing.T) {
		first, err := store.UpsertIngredient(ctx, "Egg")
		require.NoError(t, err)
		second, err := store.UpsertIngredient(ctx, "egg")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Egg", second.Name)
	})

	t.Run("find recipe by title ignores case", func(t *testing.T) {
		var created Recipe
		err := store.ExecTx(ctx, func(q Querier) error {
			var err error
			created, err = q.CreateRecipe(ctx, CreateRecipeParams{Title: "Test Omelette", Servings: 2})
			return err
		})
		require.NoError(t, err)

		err = store.ExecTx(ctx, func(q Querier) error {
			found, err := q.FindRecipeByTitle(ctx, "test omelette")
			if err != nil {
				return err
			}
			assert.Equal(t, created.ID, found.ID)
			return nil
		})
		require.NoError(t, err)

		_, err = store.GetRecipe(ctx, created.ID+1000)
		assert.True(t, IsNotFound(err))
	})

	t.Run("failed transaction leaves no rows", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.ExecTx(ctx, func(q Querier) error {
			if _, err := q.CreateRecipe(ctx, CreateRecipeParams{Title: "Rolled Back", Servings: 4}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		total, err := store.CountRecipes(ctx, "Rolled Back")
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("step image update and links", func(t *testing.T) {
		var step RecipeStep
		var recipeID int64
		err := store.ExecTx(ctx, func(q Querier) error {
			r, err := q.CreateRecipe(ctx, CreateRecipeParams{Title: "Pancakes", Servings: 4})
			if err != nil {
				return err
			}
			recipeID = r.ID
			flour, err := q.UpsertIngredient(ctx, "Flour")
			if err != nil {
				return err
			}
			ri, err := q.CreateRecipeIngredient(ctx, CreateRecipeIngredientParams{
				RecipeID:     r.ID,
				IngredientID: flour.ID,
				Name:         "Flour",
				Quantity:     pgtype.Text{String: "200", Valid: true},
				Unit:         pgtype.Text{String: "g", Valid: true},
			})
			if err != nil {
				return err
			}
			step, err = q.CreateStep(ctx, CreateStepParams{
				RecipeID:     r.ID,
				StepNumber:   1,
				Instruction:  "Sift the flour",
				Dependencies: []int32{},
			})
			if err != nil {
				return err
			}
			return q.CreateStepIngredient(ctx, CreateStepIngredientParams{StepID: step.ID, RecipeIngredientID: ri.ID})
		})
		require.NoError(t, err)

		links, err := store.ListStepIngredientLinks(ctx, recipeID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "Flour", links[0].Name)
		assert.Equal(t, "200", links[0].Quantity.String)

		err = store.UpdateStepImage(ctx, UpdateStepImageParams{
			ID:          step.ID,
			ImageUrl:    pgtype.Text{String: "https://cdn.example/step.png", Valid: true},
			ImagePrompt: pgtype.Text{String: "flat illustration", Valid: true},
		})
		require.NoError(t, err)

		got, err := store.GetStep(ctx, step.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/step.png", got.ImageUrl.String)
		assert.True(t, got.ImageGeneratedAt.Valid)

		err = store.UpdateStepImage(ctx, UpdateStepImageParams{ID: step.ID + 1000})
		assert.True(t, IsNotFound(err))
	})
}
