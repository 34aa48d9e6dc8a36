package volc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fairytale/internal/model"
)

const (
	defaultBase  = "https://ark.cn-beijing.volces.com"
	defaultModel = "doubao-seedream-3-0-t2i-250415"

	// 1x1 PNG pixel base64
	mockPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="
)

// ArkClient 火山方舟Seedream图片生成客户端
type ArkClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	ImageModel string
	Mock       bool
}

// NewArkClient 创建ArkClient
func NewArkClient(baseURL, apiKey, imageModel string, timeout time.Duration, mock bool) *ArkClient {
	if baseURL == "" {
		baseURL = defaultBase
	}
	if imageModel == "" {
		imageModel = defaultModel
	}
	return &ArkClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		ImageModel: imageModel,
		Mock:       mock,
	}
}

// GenerateImage 生成单张图片，带seed时把seed作为一致性标识返回
func (c *ArkClient) GenerateImage(ctx context.Context, req model.ImageRequest) (*model.ImageResult, error) {
	anchor := ""
	if req.Seed != nil {
		anchor = strconv.FormatInt(*req.Seed, 10)
	}
	if c.Mock {
		return &model.ImageResult{Reference: "data:image/png;base64," + mockPixel, Anchor: anchor}, nil
	}

	size := req.Size
	if size == "" {
		size = "1024x1024"
	}
	body := map[string]any{
		"model":           c.ImageModel,
		"prompt":          req.Prompt,
		"size":            size,
		"response_format": "url",
		"watermark":       false,
	}
	if req.Seed != nil {
		// Seedream seed取值范围为[-1, 2147483647]
		body["seed"] = *req.Seed & 0x7fffffff
	}

	var resp struct {
		Data []struct {
			URL string `json:"url"`
			B64 string `json:"b64_json"`
		} `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/v3/images/generations", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("ark error %s: %s", resp.Error.Code, resp.Error.Message)
	}
	for _, d := range resp.Data {
		if d.URL != "" {
			return &model.ImageResult{Reference: d.URL, Anchor: anchor}, nil
		}
		if d.B64 != "" {
			return &model.ImageResult{Reference: "data:image/png;base64," + d.B64, Anchor: anchor}, nil
		}
	}
	return nil, errors.New("no images returned")
}

func (c *ArkClient) postJSON(ctx context.Context, path string, body any, out any) error {
	if c.APIKey == "" {
		return errors.New("ark api key not configured")
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", res.StatusCode, string(bodyBytes))
	}
	return json.Unmarshal(bodyBytes, out)
}
