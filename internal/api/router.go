package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fairytale/internal/config"
	"fairytale/internal/model"
)

const (
	serviceName = "FaiRY TALE API"
	version     = "1.0.0"
)

// StoryGenerator 完整故事生成
type StoryGenerator interface {
	Generate(ctx context.Context, req model.StoryRequest) (*model.CompleteStoryResult, error)
}

// SpeechGenerator 单段文本语音合成
type SpeechGenerator interface {
	Generate(ctx context.Context, text string, sceneNumber int) (string, error)
}

// Deps 路由依赖
type Deps struct {
	Config  *config.Config
	Stories StoryGenerator
	Speech  SpeechGenerator
	Logger  logrus.FieldLogger
}

// NewRouter 注册全部路由
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(d.Logger), cors())

	if d.Config.StaticDir != "" {
		router.Static("/static", d.Config.StaticDir)
	}

	router.GET("/", handleRoot(d.Config))
	router.GET("/health", handleHealth(d.Config))
	router.GET("/themes", handleThemes())
	router.POST("/generate_complete_story", handleCompleteStory(d.Stories, d.Logger))
	router.POST("/generate_tts", handleTTS(d.Config, d.Speech, d.Logger))
	router.POST("/upload_photo", handleUploadPhoto(d.Logger))

	return router
}

// cors 允许所有来源，预检请求直接返回204
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestID 为每个请求分配X-Request-ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func accessLog(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Info("request")
	}
}

// requestLogger 带request_id的日志
func requestLogger(c *gin.Context, log logrus.FieldLogger) logrus.FieldLogger {
	return log.WithField("request_id", c.GetString("request_id"))
}
