package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairytale/internal/character"
	"fairytale/internal/illustration"
	"fairytale/internal/model"
	"fairytale/internal/narration"
	"fairytale/internal/script"
)

type fakeBuilder struct {
	desc  *character.Description
	calls int
}

func (f *fakeBuilder) Build(ctx context.Context, p model.ChildProfile) *character.Description {
	f.calls++
	return f.desc
}

type fakeGenerator struct {
	res      script.Result
	err      error
	gotDesc  *character.Description
	gotTheme string
}

func (f *fakeGenerator) Generate(ctx context.Context, p model.ChildProfile, themeID string, desc *character.Description) (script.Result, error) {
	f.gotDesc = desc
	f.gotTheme = themeID
	return f.res, f.err
}

type fakeIllustrator struct {
	enabled     bool
	failScenes  map[int]bool
	failPortrait bool
	order       []int
	anchors     []*illustration.Anchor
	descs       []*character.Description
}

func (f *fakeIllustrator) Illustrate(ctx context.Context, d model.SceneDraft, desc *character.Description, anchor *illustration.Anchor) illustration.Illustration {
	f.order = append(f.order, d.SceneNumber)
	f.anchors = append(f.anchors, anchor)
	f.descs = append(f.descs, desc)
	n := d.SceneNumber
	if !f.enabled {
		return illustration.Illustration{SceneNumber: n, Reference: illustration.Placeholder(n), Status: illustration.StatusSkipped}
	}
	if f.failScenes[n] {
		return illustration.Illustration{SceneNumber: n, Reference: illustration.Placeholder(n), Status: illustration.StatusPlaceholder, Err: errors.New("boom")}
	}
	return illustration.Illustration{
		SceneNumber: n,
		Reference:   fmt.Sprintf("https://img/%d.png", n),
		Anchor:      &illustration.Anchor{Token: fmt.Sprintf("tok-%d", n), OriginatingScene: n},
		Status:      illustration.StatusGenerated,
	}
}

func (f *fakeIllustrator) Portrait(ctx context.Context, p model.ChildProfile, desc *character.Description, anchor *illustration.Anchor) illustration.Illustration {
	if !f.enabled {
		return illustration.Illustration{Reference: illustration.CharacterPlaceholder, Status: illustration.StatusSkipped}
	}
	if f.failPortrait {
		return illustration.Illustration{Reference: illustration.CharacterPlaceholder, Status: illustration.StatusPlaceholder, Err: errors.New("boom")}
	}
	return illustration.Illustration{Reference: "https://img/portrait.png", Status: illustration.StatusGenerated}
}

type fakeNarrator struct {
	mu         sync.Mutex
	failScenes map[int]bool
	calls      int
}

func (f *fakeNarrator) Synthesize(ctx context.Context, text string, n int, name string) narration.Narration {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failScenes[n] {
		return narration.Narration{SceneNumber: n, Err: errors.New("tts down")}
	}
	return narration.Narration{SceneNumber: n, Reference: fmt.Sprintf("/static/audio/scene_%d.mp3", n)}
}

func sixScenes() script.Result {
	var drafts []model.SceneDraft
	for i := 1; i <= model.MaxScenes; i++ {
		drafts = append(drafts, model.SceneDraft{SceneNumber: i, Text: fmt.Sprintf("장면 %d", i), ImagePrompt: "p"})
	}
	return script.Result{Script: script.Script{Title: "민아의 모험", Scenes: drafts}, Source: script.SourceModel}
}

type harness struct {
	builder     *fakeBuilder
	generator   *fakeGenerator
	illustrator *fakeIllustrator
	narrator    *fakeNarrator
	svc         *StoryService
}

func newHarness(t *testing.T, credentialed bool) *harness {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	logger, _ := test.NewNullLogger()
	h := &harness{
		builder:     &fakeBuilder{desc: &character.Description{Features: "red hoodie", Source: character.SourcePhoto}},
		generator:   &fakeGenerator{res: sixScenes()},
		illustrator: &fakeIllustrator{enabled: true},
		narrator:    &fakeNarrator{},
	}
	h.svc = NewStoryService(Deps{
		Credentialed: credentialed,
		Builder:      h.builder,
		Generator:    h.generator,
		Illustrator:  h.illustrator,
		Narrator:     h.narrator,
		Pool:         pool,
		Logger:       logger,
	})
	return h
}

var request = model.StoryRequest{
	ChildProfile: model.ChildProfile{Name: "민아", Age: 5, Gender: "girl"},
	Theme:        "안전습관",
}

func TestGenerate_HappyPath(t *testing.T) {
	h := newHarness(t, true)

	res, err := h.svc.Generate(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, "민아의 모험", res.Story.Title)
	assert.Equal(t, model.MaxScenes, res.TotalScenes)
	assert.Equal(t, "https://img/portrait.png", res.CharacterImage)
	assert.Empty(t, res.Degraded)
	for i, sc := range res.Story.Scenes {
		assert.Equal(t, i+1, sc.SceneNumber)
		assert.Equal(t, fmt.Sprintf("https://img/%d.png", i+1), sc.ImageURL)
		assert.Equal(t, fmt.Sprintf("/static/audio/scene_%d.mp3", i+1), sc.AudioURL)
	}

	assert.Equal(t, 1, h.builder.calls)
	assert.Same(t, h.builder.desc, h.generator.gotDesc)
	for _, d := range h.illustrator.descs {
		assert.Same(t, h.builder.desc, d)
	}
	assert.Equal(t, model.MaxScenes, h.narrator.calls)
}

func TestGenerate_IllustratesInOrderWithAnchor(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.svc.Generate(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, h.illustrator.order)
	assert.Nil(t, h.illustrator.anchors[0])
	for _, a := range h.illustrator.anchors[1:] {
		require.NotNil(t, a)
		assert.Equal(t, "tok-1", a.Token)
		assert.Equal(t, 1, a.OriginatingScene)
	}
}

func TestGenerate_AnchorFromFirstSuccessfulScene(t *testing.T) {
	h := newHarness(t, true)
	h.illustrator.failScenes = map[int]bool{1: true}

	res, err := h.svc.Generate(context.Background(), request)
	require.NoError(t, err)

	assert.Nil(t, h.illustrator.anchors[1])
	assert.Equal(t, "tok-2", h.illustrator.anchors[2].Token)
	assert.Equal(t, illustration.Placeholder(1), res.Story.Scenes[0].ImageURL)
	assert.Equal(t, []string{"image:1"}, res.Degraded)
}

func TestGenerate_ImagesDisabled(t *testing.T) {
	h := newHarness(t, true)
	h.illustrator.enabled = false

	res, err := h.svc.Generate(context.Background(), request)
	require.NoError(t, err)

	for _, sc := range res.Story.Scenes {
		assert.Equal(t, illustration.Placeholder(sc.SceneNumber), sc.ImageURL)
	}
	assert.Equal(t, illustration.CharacterPlaceholder, res.CharacterImage)
	assert.Empty(t, res.Degraded)
}

func TestGenerate_DegradedSteps(t *testing.T) {
	h := newHarness(t, true)
	h.builder.desc = character.Heuristic(request.ChildProfile, errors.New("vision refused"))
	h.illustrator.failScenes = map[int]bool{3: true}
	h.illustrator.failPortrait = true
	h.narrator.failScenes = map[int]bool{2: true, 5: true}

	res, err := h.svc.Generate(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, []string{"photo_analysis", "image:3", "audio:2", "audio:5", "character_image"}, res.Degraded)
	assert.Empty(t, res.Story.Scenes[1].AudioURL)
	assert.NotEmpty(t, res.Story.Scenes[0].AudioURL)
	for _, sc := range res.Story.Scenes {
		assert.NotEmpty(t, sc.ImageURL)
	}
}

func TestGenerate_FallbackScript(t *testing.T) {
	h := newHarness(t, true)
	fb := script.Fallback("민아", "안전습관")
	h.generator.res = script.ParseOrFallback("not json", fb)

	res, err := h.svc.Generate(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, 1, res.TotalScenes)
	assert.Equal(t, "민아의 안전습관 이야기", res.Story.Title)
	assert.Equal(t, []string{"script"}, res.Degraded)
}

func TestGenerate_UnknownThemeStillSucceeds(t *testing.T) {
	h := newHarness(t, true)
	req := request
	req.Theme = "우주여행"

	res, err := h.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "우주여행", h.generator.gotTheme)
	assert.Equal(t, model.MaxScenes, res.TotalScenes)
}

func TestGenerate_MissingCredential(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.svc.Generate(context.Background(), request)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, h.builder.calls)
	assert.Empty(t, h.illustrator.order)
}

func TestGenerate_TextGenerationFailureIsFatal(t *testing.T) {
	h := newHarness(t, true)
	h.generator.err = errors.New("text generation: 500")

	_, err := h.svc.Generate(context.Background(), request)
	assert.Error(t, err)
	assert.Empty(t, h.illustrator.order)
	assert.Zero(t, h.narrator.calls)
}

func TestGenerate_WithoutPool(t *testing.T) {
	h := newHarness(t, true)
	h.svc.pool = nil

	res, err := h.svc.Generate(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, model.MaxScenes, h.narrator.calls)
	assert.Equal(t, "/static/audio/scene_6.mp3", res.Story.Scenes[5].AudioURL)
}

func TestGenerate_ConcurrentRequestsShareNothing(t *testing.T) {
	pool, err := ants.NewPool(8)
	require.NoError(t, err)
	defer pool.Release()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger, _ := test.NewNullLogger()
			svc := NewStoryService(Deps{
				Credentialed: true,
				Builder:      &fakeBuilder{desc: &character.Description{Features: "f", Source: character.SourceHeuristic}},
				Generator:    &fakeGenerator{res: sixScenes()},
				Illustrator:  &fakeIllustrator{enabled: true},
				Narrator:     &fakeNarrator{},
				Pool:         pool,
				Logger:       logger,
			})
			res, err := svc.Generate(context.Background(), request)
			if assert.NoError(t, err) {
				assert.Len(t, res.Story.Scenes, model.MaxScenes)
			}
		}()
	}
	wg.Wait()
}
