package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fairytale/internal/model"
)

// Source 脚本来源
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

var (
	ErrNoJSONObject  = errors.New("no json object found in completion")
	ErrMissingScenes = errors.New("completion has no scenes")
)

// Script 故事标题和场景草稿
type Script struct {
	Title  string
	Scenes []model.SceneDraft
}

// Result 解析结果，Source标明是否使用了降级脚本
type Result struct {
	Script   Script
	Source   Source
	ParseErr error
}

// Degraded 是否使用了降级脚本
func (r Result) Degraded() bool {
	return r.Source == SourceFallback
}

type rawScript struct {
	Title  string `json:"title"`
	Scenes []struct {
		SceneNumber int    `json:"scene_number"`
		Text        string `json:"text"`
		ImagePrompt string `json:"image_prompt"`
	} `json:"scenes"`
}

// Parse 截取第一个'{'到最后一个'}'之间的内容并严格解码
// 场景最多保留MaxScenes个，编号按顺序重排为1..n
func Parse(raw string) (Script, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return Script{}, ErrNoJSONObject
	}

	var payload rawScript
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	if len(payload.Scenes) == 0 {
		return Script{}, ErrMissingScenes
	}

	if len(payload.Scenes) > model.MaxScenes {
		payload.Scenes = payload.Scenes[:model.MaxScenes]
	}
	scenes := make([]model.SceneDraft, 0, len(payload.Scenes))
	for _, s := range payload.Scenes {
		n := len(scenes) + 1
		prompt := strings.TrimSpace(s.ImagePrompt)
		if prompt == "" {
			prompt = fmt.Sprintf("Children's book illustration, scene %d", n)
		}
		scenes = append(scenes, model.SceneDraft{
			SceneNumber: n,
			Text:        strings.TrimSpace(s.Text),
			ImagePrompt: prompt,
		})
	}
	return Script{Title: strings.TrimSpace(payload.Title), Scenes: scenes}, nil
}

// ParseOrFallback 解析失败时返回fallback，解析成功但缺标题时使用fallback的标题
func ParseOrFallback(raw string, fallback Script) Result {
	s, err := Parse(raw)
	if err != nil {
		return Result{Script: fallback, Source: SourceFallback, ParseErr: err}
	}
	if s.Title == "" {
		s.Title = fallback.Title
	}
	return Result{Script: s, Source: SourceModel}
}

// Fallback 单场景的确定性降级脚本
func Fallback(childName, themeName string) Script {
	return Script{
		Title: FallbackTitle(childName, themeName),
		Scenes: []model.SceneDraft{{
			SceneNumber: 1,
			Text:        fmt.Sprintf("%s는 %s에 대해 배우기 시작했어요.", childName, themeName),
			ImagePrompt: fmt.Sprintf("Children's book illustration of a Korean child learning about %s", themeName),
		}},
	}
}

// FallbackTitle 默认标题："{name}의 {theme} 이야기"
func FallbackTitle(childName, themeName string) string {
	return fmt.Sprintf("%s의 %s 이야기", childName, themeName)
}
