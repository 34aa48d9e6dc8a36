package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairytale/internal/character"
	"fairytale/internal/llm"
	"fairytale/internal/model"
)

type fakeCompleter struct {
	completeFunc func(ctx context.Context, req llm.Request) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f.completeFunc(ctx, req)
}

var mina = model.ChildProfile{Name: "Mina", Age: 5, Gender: "girl"}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	desc := &character.Description{Features: "a cheerful 5-year-old Korean girl with pigtails", Source: character.SourceHeuristic}

	t.Run("model output parsed", func(t *testing.T) {
		var got llm.Request
		g := NewGenerator(&fakeCompleter{completeFunc: func(ctx context.Context, req llm.Request) (string, error) {
			got = req
			return `{"title":"민아와 신호등","scenes":[{"scene_number":1,"text":"a","image_prompt":"p"}]}`, nil
		}}, Options{Model: "gpt-4o", Temperature: 0.8, MaxTokens: 2000, Timeout: time.Second}, logrusNull())

		res, err := g.Generate(ctx, mina, "안전습관", desc)
		require.NoError(t, err)
		assert.Equal(t, SourceModel, res.Source)
		assert.Equal(t, "민아와 신호등", res.Script.Title)

		require.NotNil(t, got.Temperature)
		assert.Equal(t, float32(0.8), *got.Temperature)
		assert.Equal(t, 2000, got.MaxTokens)
		assert.Equal(t, "gpt-4o", got.Model)
		assert.Contains(t, got.User, desc.Features)
		assert.Contains(t, got.User, "안전습관")
	})

	t.Run("malformed output falls back and logs", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		g := NewGenerator(&fakeCompleter{completeFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return "Sorry, here is a poem instead.", nil
		}}, Options{}, logger)

		res, err := g.Generate(ctx, mina, "safety_habits", desc)
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, res.Source)
		assert.Equal(t, "Mina의 안전습관 이야기", res.Script.Title)
		assert.Len(t, hook.AllEntries(), 1)
	})

	t.Run("unknown theme keeps raw name in fallback", func(t *testing.T) {
		g := NewGenerator(&fakeCompleter{completeFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return "{}", nil
		}}, Options{}, logrusNull())

		res, err := g.Generate(ctx, mina, "우주여행", desc)
		require.NoError(t, err)
		assert.Equal(t, "Mina의 우주여행 이야기", res.Script.Title)
	})

	t.Run("text generation error is fatal", func(t *testing.T) {
		g := NewGenerator(&fakeCompleter{completeFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return "", errors.New("401 unauthorized")
		}}, Options{}, logrusNull())

		_, err := g.Generate(ctx, mina, "안전습관", desc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestBuildPrompt(t *testing.T) {
	desc := &character.Description{Features: "short black hair, yellow raincoat"}
	p := BuildPrompt(model.ChildProfile{Name: "Joon", Age: 6}, "경제관념", desc)

	assert.Contains(t, p, "Joon (6 years old, boy)")
	assert.Contains(t, p, "경제관념")
	assert.Contains(t, p, "저축")
	assert.Contains(t, p, "yellow raincoat")
	assert.Contains(t, p, "Exactly 6 scenes")
	assert.Contains(t, p, `"scenes"`)
}

func logrusNull() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}
