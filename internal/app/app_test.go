package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"shared-menu/internal/config"
	"shared-menu/internal/dish"
	"shared-menu/internal/shopping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatCompletions answers every request with the same categorized list.
func chatCompletions(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	content, err := json.Marshal(`{"groups": [
		{"category": "vegetable", "ingredients": [{"name": "tomato", "quantity": "3"}]},
		{"category": "condiments", "ingredients": [{"name": "ketchup", "quantity": "1 bottle"}]}
	]}`)
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "deepseek-chat",
			"choices": [{"message": {"content": ` + string(content) + `}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestApp(t *testing.T, baseURL string) *App {
	t.Helper()

	cfg := &config.Config{
		Environment:     "test",
		Port:            "0",
		DatabasePath:    filepath.Join(t.TempDir(), "data", "shared-menu.db"),
		AllowedOrigins:  []string{"*"},
		TextGenProvider: config.ProviderOpenAI,
		TextGenBaseURL:  baseURL,
		TextGenModel:    "deepseek-chat",
		TextGenAPIKey:   "sk-test",
	}
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func request(t *testing.T, a *App, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, req)
	return rec
}

func TestWishToShoppingList(t *testing.T) {
	var calls atomic.Int32
	a := newTestApp(t, chatCompletions(t, &calls).URL)
	ctx := context.Background()

	rec := request(t, a, http.MethodPost, "/api/sides/male/dishes",
		`{"name": "Shakshuka", "cooking_time_minutes": 35, "ingredients": [{"name": "tomato", "quantity": "3"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data dish.Dish `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = request(t, a, http.MethodPost, "/api/dishes/"+created.Data.ID+"/wish?side=female", `{"wished": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = request(t, a, http.MethodPost, "/api/shopping-list/generate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(1), calls.Load())

	id, list, err := a.ShoppingList(ctx, []string{created.Data.ID})
	require.NoError(t, err)
	assert.Equal(t, shopping.ListID([]string{created.Data.ID}), id)
	require.NotNil(t, list)
	require.Len(t, list.Content.Groups, 2)
	assert.Equal(t, shopping.Vegetable, list.Content.Groups[0].Category)
	assert.Equal(t, shopping.Other, list.Content.Groups[1].Category)

	t.Run("UnknownSetHasNoList", func(t *testing.T) {
		id, list, err := a.ShoppingList(ctx, []string{"nope"})
		require.NoError(t, err)
		assert.Equal(t, shopping.ListID([]string{"nope"}), id)
		assert.Nil(t, list)
	})

	t.Run("UsageReport", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, a.ReportUsage(7, &buf))
		assert.Contains(t, buf.String(), "prompt=120 completion=30 executions=1")
	})

	t.Run("CleanupKeepsRecentMetrics", func(t *testing.T) {
		n, err := a.CleanupMetrics(30)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestNewRejectsBadDatabasePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, writeFile(blocker))

	_, err := New(context.Background(), &config.Config{
		DatabasePath:    filepath.Join(blocker, "db.sqlite"),
		TextGenProvider: config.ProviderOpenAI,
		TextGenAPIKey:   "sk-test",
	})
	require.Error(t, err)
}

func TestNewOffline(t *testing.T) {
	cfg := &config.Config{
		Environment:     "test",
		DatabasePath:    filepath.Join(t.TempDir(), "shared-menu.db"),
		TextGenProvider: config.ProviderOpenAI,
	}

	_, err := New(context.Background(), cfg)
	require.EqualError(t, err, "TEXTGEN_API_KEY environment variable not set")

	a, err := NewOffline(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Server())
	require.Error(t, a.Serve(context.Background()))

	id, list, err := a.ShoppingList(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, "sl_c727", id)
	assert.Nil(t, list)

	n, err := a.CleanupMetrics(30)
	require.NoError(t, err)
	assert.Zero(t, n)

	var buf bytes.Buffer
	require.NoError(t, a.ReportUsage(7, &buf))
	assert.Contains(t, buf.String(), "No data yet")
}

func TestNewRenderFont(t *testing.T) {
	var calls atomic.Int32
	cfg := &config.Config{
		Environment:     "test",
		DatabasePath:    filepath.Join(t.TempDir(), "shared-menu.db"),
		TextGenProvider: config.ProviderOpenAI,
		TextGenBaseURL:  chatCompletions(t, &calls).URL,
		TextGenAPIKey:   "sk-test",
		RenderFontPath:  filepath.Join("..", "shopping", "testdata", "cjk-subset.ttf"),
	}
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg.RenderFontPath = filepath.Join(t.TempDir(), "missing.ttf")
	_, err = New(context.Background(), cfg)
	require.Error(t, err)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}
