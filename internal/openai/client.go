package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fairytale/internal/model"
)

const defaultBase = "https://api.openai.com/v1"

// Client OpenAI图片与语音接口客户端
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	ImageModel string
}

// NewClient 创建客户端，baseURL为空时使用官方地址
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBase
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		ImageModel: "dall-e-3",
	}
}

// GenerateImage 调用images/generations生成一张图片
// OpenAI不返回一致性标识，Anchor始终为空
func (c *Client) GenerateImage(ctx context.Context, req model.ImageRequest) (*model.ImageResult, error) {
	body := map[string]any{
		"model":  c.ImageModel,
		"prompt": req.Prompt,
		"n":      1,
	}
	if req.Size != "" {
		body["size"] = req.Size
	}
	if req.Quality != "" {
		body["quality"] = req.Quality
	}

	var resp struct {
		Data []struct {
			URL           string `json:"url"`
			B64           string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/images/generations", body, &resp); err != nil {
		return nil, err
	}
	for _, d := range resp.Data {
		if d.URL != "" {
			return &model.ImageResult{Reference: d.URL}, nil
		}
		if d.B64 != "" {
			return &model.ImageResult{Reference: "data:image/png;base64," + d.B64}, nil
		}
	}
	return nil, errors.New("no images returned")
}

// SpeechParams 语音合成参数
type SpeechParams struct {
	Model  string
	Voice  string
	Input  string
	Format string // 默认mp3
}

// Speech 调用audio/speech，返回音频二进制
func (c *Client) Speech(ctx context.Context, p SpeechParams) ([]byte, error) {
	if strings.TrimSpace(p.Input) == "" {
		return nil, errors.New("speech input required")
	}
	if p.Format == "" {
		p.Format = "mp3"
	}
	body := map[string]any{
		"model":           p.Model,
		"voice":           p.Voice,
		"input":           p.Input,
		"response_format": p.Format,
	}
	audio, err := c.post(ctx, "/audio/speech", body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio returned")
	}
	return audio, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := c.post(ctx, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	if c.APIKey == "" {
		return nil, errors.New("openai api key not configured")
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", res.StatusCode, truncate(string(bodyBytes), 512))
	}
	return bodyBytes, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
