package tools

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"strconv"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"fairytale/internal/model"
)

// ImageGenerator 图片生成后端（OpenAI / Ark / Gemini）
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req model.ImageRequest) (*model.ImageResult, error)
}

// ImageTool 实现eino框架的插画生成工具
type ImageTool struct {
	gen     ImageGenerator
	Size    string
	Quality string
}

// ImageToolArgs 插画生成请求参数
type ImageToolArgs struct {
	Prompt  string `json:"prompt"`            // 完整提示词
	Size    string `json:"size,omitempty"`    // 输出分辨率
	Quality string `json:"quality,omitempty"` // 画质
	Anchor  string `json:"anchor,omitempty"`  // 一致性标识，支持seed的后端会转换为seed
}

// ImageToolResp 插画生成响应
type ImageToolResp struct {
	Image  string `json:"image"`            // 图片URL或data URL
	Anchor string `json:"anchor,omitempty"` // 后端返回的一致性标识
}

// NewImageTool 创建插画生成工具
func NewImageTool(gen ImageGenerator, size, quality string) *ImageTool {
	return &ImageTool{gen: gen, Size: size, Quality: quality}
}

// Info 获取插画生成工具信息
func (t *ImageTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"prompt":  {Type: schema.String, Required: true, Desc: "插画提示词"},
		"size":    {Type: schema.String, Required: false, Desc: "输出分辨率，如1024x1024"},
		"quality": {Type: schema.String, Required: false, Desc: "standard或hd"},
		"anchor":  {Type: schema.String, Required: false, Desc: "前一场景返回的角色一致性标识"},
	}
	return &schema.ToolInfo{
		Name:        "scene_illustrate",
		Desc:        "生成一张儿童绘本插画，可传入一致性标识以复用同一角色形象",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 执行插画生成任务
func (t *ImageTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args ImageToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	if args.Prompt == "" {
		return "", errors.New("prompt required")
	}

	req := model.ImageRequest{
		Prompt:  args.Prompt,
		Size:    firstNonEmpty(args.Size, t.Size),
		Quality: firstNonEmpty(args.Quality, t.Quality),
	}
	if args.Anchor != "" {
		seed := SeedFromAnchor(args.Anchor)
		req.Seed = &seed
	}

	res, err := t.gen.GenerateImage(ctx, req)
	if err != nil {
		return "", err
	}
	if res == nil || res.Reference == "" {
		return "", errors.New("image backend returned no reference")
	}

	b, err := json.Marshal(ImageToolResp{Image: res.Reference, Anchor: res.Anchor})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SeedFromAnchor 把一致性标识转换为非负seed，数字标识原样使用
func SeedFromAnchor(anchor string) int64 {
	if n, err := strconv.ParseInt(anchor, 10, 64); err == nil && n >= 0 {
		return n & 0x7fffffff
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(anchor))
	return int64(h.Sum64() & 0x7fffffff)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// 确保ImageTool实现了einotool.InvokableTool接口
var _ einotool.InvokableTool = (*ImageTool)(nil)
