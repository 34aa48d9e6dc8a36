package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"fairytale/internal/character"
	"fairytale/internal/illustration"
	"fairytale/internal/model"
	"fairytale/internal/narration"
	"fairytale/internal/script"
	"fairytale/internal/theme"
)

// ErrMissingCredential 文本生成凭证未配置
var ErrMissingCredential = errors.New("text generation credential is not configured")

// CharacterBuilder 角色描述构建
type CharacterBuilder interface {
	Build(ctx context.Context, p model.ChildProfile) *character.Description
}

// ScriptGenerator 故事脚本生成
type ScriptGenerator interface {
	Generate(ctx context.Context, p model.ChildProfile, themeID string, desc *character.Description) (script.Result, error)
}

// Illustrator 场景插画和角色立绘
type Illustrator interface {
	Illustrate(ctx context.Context, draft model.SceneDraft, desc *character.Description, anchor *illustration.Anchor) illustration.Illustration
	Portrait(ctx context.Context, p model.ChildProfile, desc *character.Description, anchor *illustration.Anchor) illustration.Illustration
}

// Narrator 场景朗读
type Narrator interface {
	Synthesize(ctx context.Context, text string, sceneNumber int, childName string) narration.Narration
}

// StoryService 完整故事生成流程
type StoryService struct {
	credentialed bool
	builder      CharacterBuilder
	generator    ScriptGenerator
	illustrator  Illustrator
	narrator     Narrator
	pool         *ants.Pool
	log          logrus.FieldLogger
}

// Deps StoryService依赖
type Deps struct {
	Credentialed bool // 文本生成凭证是否已配置
	Builder      CharacterBuilder
	Generator    ScriptGenerator
	Illustrator  Illustrator
	Narrator     Narrator
	Pool         *ants.Pool // 朗读并发池，为nil时顺序执行
	Logger       logrus.FieldLogger
}

// NewStoryService 创建StoryService
func NewStoryService(d Deps) *StoryService {
	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StoryService{
		credentialed: d.Credentialed,
		builder:      d.Builder,
		generator:    d.Generator,
		illustrator:  d.Illustrator,
		narrator:     d.Narrator,
		pool:         d.Pool,
		log:          log,
	}
}

// Generate 生成完整故事
// 只有凭证缺失和文本生成失败会返回错误，其余步骤失败时使用降级结果并记录在Degraded中
func (s *StoryService) Generate(ctx context.Context, req model.StoryRequest) (*model.CompleteStoryResult, error) {
	if !s.credentialed {
		return nil, ErrMissingCredential
	}

	profile := req.ChildProfile
	log := s.log.WithFields(logrus.Fields{
		"child": profile.Name,
		"theme": req.Theme,
	})
	if _, ok := theme.Resolve(req.Theme); !ok {
		log.Warn("未知主题，使用默认主题指引")
	}
	start := time.Now()

	var degraded []string

	desc := s.builder.Build(ctx, profile)
	if desc.Degraded() {
		degraded = append(degraded, "photo_analysis")
	}
	log.WithField("source", desc.Source).Info("角色描述完成")

	res, err := s.generator.Generate(ctx, profile, req.Theme, desc)
	if err != nil {
		return nil, err
	}
	if res.Degraded() {
		degraded = append(degraded, "script")
	}
	drafts := res.Script.Scenes
	log.WithFields(logrus.Fields{
		"scenes": len(drafts),
		"source": res.Source,
	}).Info("故事脚本生成完成")

	narrations := make([]narration.Narration, len(drafts))
	var wg sync.WaitGroup
	for i, d := range drafts {
		task := func() {
			defer wg.Done()
			narrations[i] = s.narrator.Synthesize(ctx, d.Text, d.SceneNumber, profile.Name)
		}
		wg.Add(1)
		if s.pool == nil {
			task()
			continue
		}
		if err := s.pool.Submit(task); err != nil {
			log.WithError(err).Warn("朗读任务提交失败，改为同步执行")
			task()
		}
	}

	// 插画必须按场景顺序生成，第一个成功场景的锚点传给后续场景
	illustrations := make([]illustration.Illustration, len(drafts))
	var anchor *illustration.Anchor
	for i, d := range drafts {
		ill := s.illustrator.Illustrate(ctx, d, desc, anchor)
		if anchor == nil && ill.Anchor != nil {
			anchor = ill.Anchor
		}
		illustrations[i] = ill
	}

	portrait := s.illustrator.Portrait(ctx, profile, desc, anchor)

	wg.Wait()

	scenes := make([]model.Scene, len(drafts))
	for i, d := range drafts {
		scenes[i] = model.Scene{
			SceneNumber: d.SceneNumber,
			Text:        d.Text,
			ImageURL:    illustrations[i].Reference,
			AudioURL:    narrations[i].Reference,
		}
		if illustrations[i].Degraded() {
			degraded = append(degraded, fmt.Sprintf("image:%d", d.SceneNumber))
		}
	}
	for i, d := range drafts {
		if narrations[i].Degraded() {
			degraded = append(degraded, fmt.Sprintf("audio:%d", d.SceneNumber))
		}
	}
	if portrait.Degraded() {
		degraded = append(degraded, "character_image")
	}

	log.WithFields(logrus.Fields{
		"scenes":   len(scenes),
		"degraded": strings.Join(degraded, ","),
		"elapsed":  time.Since(start).String(),
	}).Info("完整故事生成完成")

	return &model.CompleteStoryResult{
		Story:          model.Story{Title: res.Script.Title, Scenes: scenes},
		CharacterImage: portrait.Reference,
		TotalScenes:    len(scenes),
		Degraded:       degraded,
	}, nil
}
