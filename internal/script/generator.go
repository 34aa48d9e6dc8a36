package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fairytale/internal/character"
	"fairytale/internal/llm"
	"fairytale/internal/model"
	"fairytale/internal/theme"
)

const systemPrompt = `You are a celebrated children's book author. You write warm, educational picture-book stories for young Korean children. Always answer with a single valid JSON object and nothing else.`

// Options Generator参数
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Generator 故事脚本生成器
type Generator struct {
	completer llm.Completer
	opts      Options
	log       logrus.FieldLogger
}

// NewGenerator 创建Generator
func NewGenerator(completer llm.Completer, opts Options, log logrus.FieldLogger) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	return &Generator{completer: completer, opts: opts, log: log}
}

// Generate 生成故事脚本
// 文本生成调用本身失败时返回错误，输出格式不对时使用降级脚本
func (g *Generator) Generate(ctx context.Context, p model.ChildProfile, themeID string, desc *character.Description) (Result, error) {
	themeName := theme.DisplayName(themeID)

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	raw, err := g.completer.Complete(callCtx, llm.Request{
		Model:       g.opts.Model,
		System:      systemPrompt,
		User:        BuildPrompt(p, themeID, desc),
		Temperature: llm.Float32(g.opts.Temperature),
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("text generation: %w", err)
	}

	res := ParseOrFallback(raw, Fallback(p.Name, themeName))
	if res.Degraded() {
		g.log.WithFields(logrus.Fields{
			"child": p.Name,
			"theme": themeName,
			"error": res.ParseErr,
		}).Warn("故事脚本解析失败，使用默认脚本")
	}
	return res, nil
}

// BuildPrompt 组装故事生成提示词
func BuildPrompt(p model.ChildProfile, themeID string, desc *character.Description) string {
	guidance := theme.Lookup(themeID)
	themeName := theme.DisplayName(themeID)

	features := ""
	if desc != nil {
		features = desc.Features
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a personalized picture-book story.\n\n")
	fmt.Fprintf(&b, "Protagonist: %s (%d years old, %s)\n", p.Name, p.Age, model.ParseGender(p.Gender))
	fmt.Fprintf(&b, "Educational theme: %s\n", themeName)
	fmt.Fprintf(&b, "Goal: a story about %s\n", guidance.Context)
	fmt.Fprintf(&b, "Key lessons: %s\n", strings.Join(guidance.Lessons, ", "))
	fmt.Fprintf(&b, "Supporting characters: %s\n", guidance.Cast)
	fmt.Fprintf(&b, "Setting: %s\n", guidance.Setting)
	fmt.Fprintf(&b, "Main character appearance (reuse these exact features in every image_prompt): %s\n\n", features)

	b.WriteString("Guidelines:\n")
	fmt.Fprintf(&b, "1. Vocabulary and sentence length suited to a %d-year-old.\n", p.Age)
	fmt.Fprintf(&b, "2. %s experiences the story first-hand.\n", p.Name)
	b.WriteString("3. Let the lesson emerge naturally instead of preaching it.\n")
	b.WriteString("4. End on a hopeful, warm note.\n\n")

	b.WriteString("Structure:\n")
	fmt.Fprintf(&b, "- Exactly %d scenes, numbered from 1.\n", model.MaxScenes)
	b.WriteString("- Each scene's text is 2-3 short sentences written in Korean.\n")
	b.WriteString("- Each scene has an English image_prompt for a children's book illustration, watercolor style, describing the scene and the main character with the appearance above.\n\n")

	b.WriteString("Respond with JSON only, in this shape:\n")
	b.WriteString(`{"title": "story title in Korean", "scenes": [{"scene_number": 1, "text": "...", "image_prompt": "..."}]}`)
	return b.String()
}
