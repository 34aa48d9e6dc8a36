package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairytale/internal/model"
)

func newFakeGemini(t *testing.T, body string, seen *string) *Imager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if seen != nil {
			*seen = string(b)
		}
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	g, err := NewImager(context.Background(), Options{
		APIKey:     "g-key",
		Model:      "gemini-test",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return g
}

func TestImager_GenerateImage(t *testing.T) {
	t.Run("extracts inline image and echoes seed", func(t *testing.T) {
		var reqBody string
		g := newFakeGemini(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"iVBORw0KGgo="}}]}}]}`, &reqBody)

		seed := int64(1234)
		res, err := g.GenerateImage(context.Background(), model.ImageRequest{Prompt: "a fox", Seed: &seed})
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", res.Reference)
		assert.Equal(t, "1234", res.Anchor)
		assert.Contains(t, reqBody, "a fox")
		assert.Contains(t, reqBody, `"seed":1234`)
	})

	t.Run("text only response is an error", func(t *testing.T) {
		g := newFakeGemini(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"sorry"}]}}]}`, nil)
		_, err := g.GenerateImage(context.Background(), model.ImageRequest{Prompt: "x"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "no image"))
	})
}

func TestNewImager_RequiresKey(t *testing.T) {
	_, err := NewImager(context.Background(), Options{})
	assert.Error(t, err)
}
