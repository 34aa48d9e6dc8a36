package illustration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/sirupsen/logrus"

	"fairytale/internal/character"
	"fairytale/internal/model"
	"fairytale/internal/tools"
)

// Status 插画生成状态
type Status string

const (
	StatusGenerated   Status = "generated"
	StatusPlaceholder Status = "placeholder" // 生成失败后的占位图
	StatusSkipped     Status = "skipped"     // 图片生成关闭，未调用后端
)

// CharacterPlaceholder 角色立绘占位图
const CharacterPlaceholder = "https://picsum.photos/400/400?random=character&blur=2"

// ErrNoImage 后端没有返回图片
var ErrNoImage = errors.New("illustration tool returned no image")

// Placeholder 场景占位图
func Placeholder(sceneNumber int) string {
	return fmt.Sprintf("https://picsum.photos/400/300?random=%d&blur=1", sceneNumber)
}

// Anchor 角色一致性锚点，由第一个成功生成的场景产生，之后的场景复用
type Anchor struct {
	Token            string
	OriginatingScene int
}

// Illustration 单次插画结果，Reference永不为空
type Illustration struct {
	SceneNumber int
	Reference   string
	Anchor      *Anchor // 仅在真正生成时非空
	Status      Status
	Err         error
}

// Degraded 是否因后端失败使用了占位图
func (i Illustration) Degraded() bool {
	return i.Status == StatusPlaceholder
}

// Options Pipeline参数
type Options struct {
	Enabled bool // GENERATE_IMAGES
	Timeout time.Duration
}

// Pipeline 场景插画流水线
type Pipeline struct {
	tool einotool.InvokableTool
	opts Options
	log  logrus.FieldLogger
}

// NewPipeline 创建Pipeline，tool为nil时等同于关闭图片生成
func NewPipeline(tool einotool.InvokableTool, opts Options, log logrus.FieldLogger) *Pipeline {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Pipeline{tool: tool, opts: opts, log: log}
}

// Enabled 是否会真正调用图片后端
func (p *Pipeline) Enabled() bool {
	return p.opts.Enabled && p.tool != nil
}

// Illustrate 生成一个场景的插画
// 关闭时直接返回占位图，失败时返回占位图且不产生锚点
func (p *Pipeline) Illustrate(ctx context.Context, draft model.SceneDraft, desc *character.Description, anchor *Anchor) Illustration {
	n := draft.SceneNumber
	if !p.Enabled() {
		return Illustration{SceneNumber: n, Reference: Placeholder(n), Status: StatusSkipped}
	}

	prompt := BuildPrompt(n, draft.ImagePrompt, desc, anchor)
	resp, err := p.invoke(ctx, prompt, anchor)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"scene": n,
			"error": err,
		}).Warn("场景插画生成失败，使用占位图")
		return Illustration{SceneNumber: n, Reference: Placeholder(n), Status: StatusPlaceholder, Err: err}
	}

	token := resp.Anchor
	if token == "" {
		token = promptAnchor(prompt)
	}
	return Illustration{
		SceneNumber: n,
		Reference:   resp.Image,
		Anchor:      &Anchor{Token: token, OriginatingScene: n},
		Status:      StatusGenerated,
	}
}

// Portrait 生成角色立绘，沿用场景的锚点
func (p *Pipeline) Portrait(ctx context.Context, profile model.ChildProfile, desc *character.Description, anchor *Anchor) Illustration {
	if !p.Enabled() {
		return Illustration{Reference: CharacterPlaceholder, Status: StatusSkipped}
	}

	resp, err := p.invoke(ctx, PortraitPrompt(profile.Name, desc, anchor), anchor)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"child": profile.Name,
			"error": err,
		}).Warn("角色立绘生成失败，使用占位图")
		return Illustration{Reference: CharacterPlaceholder, Status: StatusPlaceholder, Err: err}
	}
	return Illustration{Reference: resp.Image, Anchor: anchor, Status: StatusGenerated}
}

func (p *Pipeline) invoke(ctx context.Context, prompt string, anchor *Anchor) (*tools.ImageToolResp, error) {
	args := tools.ImageToolArgs{Prompt: prompt}
	if anchor != nil {
		args.Anchor = anchor.Token
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	out, err := p.tool.InvokableRun(callCtx, string(argsJSON))
	if err != nil {
		return nil, err
	}
	var resp tools.ImageToolResp
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, fmt.Errorf("decode tool response: %w", err)
	}
	if resp.Image == "" {
		return nil, ErrNoImage
	}
	return &resp, nil
}

// promptAnchor 后端不返回标识时，用提示词哈希作为锚点
func promptAnchor(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:8])
}
