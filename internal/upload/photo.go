package upload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/image/draw"
	xwebp "golang.org/x/image/webp"
)

const (
	MaxUploadBytes = 10 << 20 // 10MB
	MaxDimension   = 1024
	MaxPixels      = 40_000_000 // 解码前按头部尺寸拦截，防止小文件解压出超大像素缓冲
	JPEGQuality    = 85
)

var (
	ErrNotImage      = errors.New("only image files can be uploaded")
	ErrTooLarge      = errors.New("file size exceeds 10MB")
	ErrUndecodable   = errors.New("image could not be decoded")
	ErrTooManyPixels = errors.New("image dimensions are too large")
)

// Photo 规范化后的照片
type Photo struct {
	DataURL string // data:image/jpeg;base64,...
	Width   int
	Height  int
	Size    int // JPEG字节数
}

// Check 在读取内容之前校验类型和大小
func Check(contentType string, size int64) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return ErrNotImage
	}
	if size > MaxUploadBytes {
		return ErrTooLarge
	}
	return nil
}

// Normalize 解码图片，去除透明通道，缩放到MaxDimension以内并重新编码为JPEG
func Normalize(data []byte) (*Photo, error) {
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	if err := checkDimensions(data); err != nil {
		return nil, err
	}
	src, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &Photo{
		DataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   w,
		Height:  h,
		Size:    buf.Len(),
	}, nil
}

// checkDimensions 只读取图片头部，尺寸超过MaxPixels时拒绝
func checkDimensions(data []byte) error {
	var (
		cfg image.Config
		err error
	)
	if isWebP(data) {
		cfg, err = xwebp.DecodeConfig(bytes.NewReader(data))
	} else {
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ErrUndecodable
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	return nil
}

func decode(data []byte) (image.Image, error) {
	if isWebP(data) {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// fit 等比缩放到limit以内，不放大
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
