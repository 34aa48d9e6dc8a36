package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/genai"

	"fairytale/internal/model"
)

// Imager Gemini图片生成后端
type Imager struct {
	client *genai.Client
	model  string
}

// Options Imager构造参数
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string // 测试时指向假服务
	HTTPClient *http.Client
}

// NewImager 创建Gemini图片生成后端
func NewImager(ctx context.Context, opts Options) (*Imager, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key not configured")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash-image"
	}
	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Imager{client: client, model: opts.Model}, nil
}

// GenerateImage 生成单张图片，带seed时把实际使用的seed作为一致性标识返回
func (g *Imager) GenerateImage(ctx context.Context, req model.ImageRequest) (*model.ImageResult, error) {
	content := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(req.Prompt)},
	}
	gc := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: "1:1"},
	}
	anchor := ""
	if req.Seed != nil {
		seed := int32(*req.Seed & 0x7fffffff)
		gc.Seed = &seed
		anchor = strconv.FormatInt(int64(seed), 10)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				ref := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data)
				return &model.ImageResult{Reference: ref, Anchor: anchor}, nil
			}
		}
	}
	return nil, errors.New("no image generated from gemini")
}
