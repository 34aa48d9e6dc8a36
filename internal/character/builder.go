package character

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fairytale/internal/llm"
	"fairytale/internal/model"
)

// Source 角色描述来源
type Source string

const (
	SourcePhoto     Source = "photo-derived"
	SourceHeuristic Source = "default-heuristic"
)

// ErrLowConfidence 图片分析结果不可用（拒答或内容过短）
var ErrLowConfidence = errors.New("photo analysis returned a low-confidence answer")

// Description 角色外观描述，每个请求只生成一次并在所有场景中复用
type Description struct {
	Features       string `json:"features"`
	Source         Source `json:"source"`
	FallbackReason error  `json:"-"`
}

// Degraded 是否使用了启发式降级描述（有照片但分析失败）
func (d *Description) Degraded() bool {
	return d.Source == SourceHeuristic && d.FallbackReason != nil
}

const analysisSystemPrompt = `You are an art director for a children's picture book. You describe visual and style traits of a child so an illustrator can draw the same cartoon character consistently across pages. This is art-direction metadata only: never identify the person, never guess a name, and do not comment on the photo itself.`

const analysisUserPrompt = `Describe this child as a picture-book character in one compact English paragraph (max 80 words). Cover: face shape, eye shape and color, hair color/length/style, skin tone, typical clothing with colors, and overall mood. Output only the description.`

var refusalMarkers = []string{
	"i'm sorry",
	"i am sorry",
	"i can't",
	"i cannot",
	"i'm unable",
	"i am unable",
	"unable to help",
	"can't assist",
	"죄송",
}

const minFeaturesLength = 20

// Options Builder参数
type Options struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Builder 角色描述构建器
type Builder struct {
	completer llm.Completer
	opts      Options
	log       logrus.FieldLogger
}

// NewBuilder 创建Builder，completer为nil时总是使用启发式描述
func NewBuilder(completer llm.Completer, opts Options, log logrus.FieldLogger) *Builder {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return &Builder{completer: completer, opts: opts, log: log}
}

// Build 根据照片或性别/年龄生成角色描述，失败不会向上返回错误
func (b *Builder) Build(ctx context.Context, p model.ChildProfile) *Description {
	photo := normalizePhoto(p.Photo)
	if photo == "" {
		return Heuristic(p, nil)
	}
	if b.completer == nil {
		return b.fallback(p, errors.New("no vision model configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	text, err := b.completer.Complete(callCtx, llm.Request{
		Model:       b.opts.Model,
		System:      analysisSystemPrompt,
		User:        analysisUserPrompt,
		ImageURL:    photo,
		Temperature: llm.Float32(0.2),
		MaxTokens:   b.opts.MaxTokens,
	})
	if err != nil {
		return b.fallback(p, fmt.Errorf("photo analysis: %w", err))
	}
	if IsLowConfidence(text) {
		return b.fallback(p, ErrLowConfidence)
	}

	return &Description{
		Features: fmt.Sprintf("%s, %s", subject(p), strings.TrimSpace(text)),
		Source:   SourcePhoto,
	}
}

func (b *Builder) fallback(p model.ChildProfile, reason error) *Description {
	b.log.WithFields(logrus.Fields{
		"child": p.Name,
		"error": reason,
	}).Warn("照片分析失败，使用默认角色描述")
	return Heuristic(p, reason)
}

// Heuristic 按性别和年龄生成的确定性角色描述
func Heuristic(p model.ChildProfile, reason error) *Description {
	var features string
	switch model.ParseGender(p.Gender) {
	case model.GenderGirl:
		features = subject(p) + " with shoulder-length black hair in two small pigtails tied with red ribbons, " +
			"round sparkling dark-brown eyes, rosy cheeks and a warm smile, wearing a pastel pink dress and white sneakers"
	default:
		features = subject(p) + " with short neat black hair, round sparkling dark-brown eyes, " +
			"rosy cheeks and a big friendly smile, wearing a yellow t-shirt, blue shorts and white sneakers"
	}
	return &Description{Features: features, Source: SourceHeuristic, FallbackReason: reason}
}

// IsLowConfidence 判断分析结果是否为拒答或无效内容
func IsLowConfidence(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minFeaturesLength {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range refusalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func subject(p model.ChildProfile) string {
	age := "young"
	if p.Age > 0 {
		age = fmt.Sprintf("%d-year-old", p.Age)
	}
	return fmt.Sprintf("a cheerful %s Korean %s", age, model.ParseGender(p.Gender))
}

// normalizePhoto 接受data URL、http(s)地址或裸base64
func normalizePhoto(photo string) string {
	photo = strings.TrimSpace(photo)
	switch {
	case photo == "":
		return ""
	case strings.HasPrefix(photo, "data:image/"),
		strings.HasPrefix(photo, "http://"),
		strings.HasPrefix(photo, "https://"):
		return photo
	default:
		return "data:image/jpeg;base64," + photo
	}
}
