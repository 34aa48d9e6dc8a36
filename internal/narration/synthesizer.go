package narration

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fairytale/internal/openai"
)

// Speaker 语音合成能力
type Speaker interface {
	Speech(ctx context.Context, p openai.SpeechParams) ([]byte, error)
}

// ErrEmptyText 没有可朗读的文本
var ErrEmptyText = errors.New("narration text is empty")

// Narration 单个场景的朗读结果，失败时Reference为空
type Narration struct {
	SceneNumber int
	Reference   string
	Err         error
}

// Degraded 是否合成失败
func (n Narration) Degraded() bool {
	return n.Err != nil
}

// Options Synthesizer参数
type Options struct {
	Model   string
	Voice   string
	Timeout time.Duration
}

// Synthesizer 场景朗读合成器
type Synthesizer struct {
	speaker Speaker
	store   AudioStore
	opts    Options
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewSynthesizer 创建Synthesizer
func NewSynthesizer(speaker Speaker, store AudioStore, opts Options, log logrus.FieldLogger) *Synthesizer {
	if opts.Model == "" {
		opts.Model = "tts-1"
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Synthesizer{speaker: speaker, store: store, opts: opts, log: log, now: time.Now}
}

// Synthesize 为故事场景合成朗读，失败不返回错误，只记录在Narration.Err
func (s *Synthesizer) Synthesize(ctx context.Context, text string, sceneNumber int, childName string) Narration {
	name := fmt.Sprintf("scene_%d_%s_%d_%s.mp3", sceneNumber, SanitizeName(childName), s.now().Unix(), shortID())
	ref, err := s.render(ctx, text, name)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"scene": sceneNumber,
			"error": err,
		}).Warn("场景朗读合成失败")
		return Narration{SceneNumber: sceneNumber, Err: err}
	}
	return Narration{SceneNumber: sceneNumber, Reference: ref}
}

// Generate 单独合成一段文本，供/generate_tts使用
func (s *Synthesizer) Generate(ctx context.Context, text string, sceneNumber int) (string, error) {
	name := fmt.Sprintf("scene_%d_%s.mp3", sceneNumber, shortID())
	return s.render(ctx, text, name)
}

func (s *Synthesizer) render(ctx context.Context, text, name string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	audio, err := s.speaker.Speech(callCtx, openai.SpeechParams{
		Model: s.opts.Model,
		Voice: s.opts.Voice,
		Input: text,
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis: %w", err)
	}
	return s.store.Save(callCtx, name, audio)
}

func shortID() string {
	return uuid.NewString()[:8]
}

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// SanitizeName 把名字转换为可用于文件名的形式
func SanitizeName(name string) string {
	s := unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "child"
	}
	if r := []rune(s); len(r) > 32 {
		s = string(r[:32])
	}
	return s
}
