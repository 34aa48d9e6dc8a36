package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fairytale/internal/config"
	"fairytale/internal/model"
	"fairytale/internal/service"
	"fairytale/internal/theme"
	"fairytale/internal/upload"
)

var features = []string{
	"개인화된 동화 생성",
	"AI 일러스트레이션",
	"TTS 음성 지원",
	"6개 장면 구성",
	"5가지 교육 테마",
	"사진 업로드 지원",
}

func credentialStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}

func imageModel(cfg *config.Config) string {
	switch cfg.ImageProvider {
	case config.ProviderArk:
		return cfg.ArkImageModel
	case config.ProviderGemini:
		return cfg.GeminiImageModel
	default:
		return cfg.ImageModel
	}
}

func imageCredentialSet(cfg *config.Config) bool {
	switch cfg.ImageProvider {
	case config.ProviderArk:
		return cfg.ArkAPIKey != "" || cfg.ArkMock
	case config.ProviderGemini:
		return cfg.GeminiAPIKey != ""
	default:
		return cfg.OpenAIAPIKey != ""
	}
}

func capabilities(cfg *config.Config) gin.H {
	storyModel, _ := cfg.ChatModels()
	return gin.H{
		"text_generation": gin.H{
			"model":    storyModel,
			"provider": cfg.TextProvider,
			"status":   credentialStatus(cfg.TextCredentialSet()),
		},
		"image_generation": gin.H{
			"model":    imageModel(cfg),
			"provider": cfg.ImageProvider,
			"status":   credentialStatus(imageCredentialSet(cfg)),
			"enabled":  cfg.GenerateImages,
		},
		"tts_generation": gin.H{
			"model":    cfg.TTSModel,
			"provider": config.ProviderOpenAI,
			"status":   credentialStatus(cfg.SpeechCredentialSet()),
		},
	}
}

// handleRoot 服务信息
func handleRoot(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":         "🧚‍♀️ FaiRY TALE - 우리아이만의 동화책",
			"version":         version,
			"status":          "healthy",
			"models":          capabilities(cfg),
			"text_credential": credentialStatus(cfg.TextCredentialSet()),
			"generate_images": cfg.GenerateImages,
			"image_provider":  cfg.ImageProvider,
			"features":        features,
		})
	}
}

// handleHealth 健康检查
func handleHealth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service_name":    serviceName,
			"version":         version,
			"status":          "healthy",
			"models":          capabilities(cfg),
			"text_credential": credentialStatus(cfg.TextCredentialSet()),
			"generate_images": cfg.GenerateImages,
			"image_provider":  cfg.ImageProvider,
			"features":        features,
		})
	}
}

// handleThemes 主题列表
func handleThemes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"themes": theme.List()})
	}
}

// handleCompleteStory 生成完整故事
func handleCompleteStory(stories StoryGenerator, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Connection", "close")
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")

		var req model.StoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		if strings.TrimSpace(req.ChildProfile.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "孩子的名字不能为空"})
			return
		}

		result, err := stories.Generate(c.Request.Context(), req)
		if err != nil {
			requestLogger(c, log).WithError(err).Error("完整故事生成失败")
			if errors.Is(err, service.ErrMissingCredential) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "文本生成API密钥未配置"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("生成故事失败: %v", err)})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type ttsRequest struct {
	Text        string `json:"text" binding:"required"`
	SceneNumber int    `json:"scene_number"`
}

// handleTTS 单段文本语音合成
func handleTTS(cfg *config.Config, speech SpeechGenerator, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ttsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		if !cfg.SpeechCredentialSet() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "OpenAI API密钥未配置"})
			return
		}

		url, err := speech.Generate(c.Request.Context(), req.Text, req.SceneNumber)
		if err != nil {
			requestLogger(c, log).WithError(err).Error("语音合成失败")
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("语音合成失败: %v", err)})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"audio_url":    url,
			"scene_number": req.SceneNumber,
		})
	}
}

// maxUploadBodyBytes 上传请求体上限，文件上限之外留出multipart头部的余量
const maxUploadBodyBytes = upload.MaxUploadBytes + 1<<20

// handleUploadPhoto 上传并规范化儿童照片
func handleUploadPhoto(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxUploadBodyBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": uploadMessage(upload.ErrTooLarge)})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBodyBytes)

		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusBadRequest, gin.H{"error": uploadMessage(upload.ErrTooLarge)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
			return
		}

		if err := upload.Check(fh.Header.Get("Content-Type"), fh.Size); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": uploadMessage(err)})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "读取上传文件失败"})
			return
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, upload.MaxUploadBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "读取上传文件失败"})
			return
		}

		photo, err := upload.Normalize(data)
		if err != nil {
			requestLogger(c, log).WithError(err).Warn("照片处理失败")
			c.JSON(http.StatusBadRequest, gin.H{"error": uploadMessage(err)})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"image_url": photo.DataURL,
			"message":   "사진이 성공적으로 업로드되었습니다.",
			"file_info": gin.H{
				"original_filename": fh.Filename,
				"content_type":      "image/jpeg",
				"size":              photo.Size,
				"width":             photo.Width,
				"height":            photo.Height,
			},
		})
	}
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrNotImage):
		return "只能上传图片文件"
	case errors.Is(err, upload.ErrTooLarge):
		return "文件大小不能超过10MB"
	case errors.Is(err, upload.ErrTooManyPixels):
		return "图片分辨率过大"
	case errors.Is(err, upload.ErrUndecodable):
		return "无法解析图片文件"
	default:
		return fmt.Sprintf("照片处理失败: %v", err)
	}
}
