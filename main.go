package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"fairytale/internal/api"
	"fairytale/internal/character"
	"fairytale/internal/config"
	"fairytale/internal/gemini"
	"fairytale/internal/illustration"
	"fairytale/internal/llm"
	"fairytale/internal/narration"
	"fairytale/internal/openai"
	"fairytale/internal/script"
	"fairytale/internal/service"
	"fairytale/internal/tools"
	"fairytale/internal/volc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logCloser, err := config.InitLogging(cfg)
	if err != nil {
		logrus.Fatalf("初始化日志失败: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()
	log := logrus.StandardLogger()

	// 初始化OpenAI客户端，语音合成和DALL-E共用
	openaiClient := openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.TTSTimeout)
	openaiClient.ImageModel = cfg.ImageModel

	// 文本生成，没有凭证时不创建，请求时返回错误
	var completer llm.Completer
	if cfg.TextCredentialSet() {
		chatModel, err := llm.NewChatModel(ctx, cfg)
		if err != nil {
			logrus.Fatalf("初始化聊天模型失败: %v", err)
		}
		if completer, err = llm.NewChatCompleter(ctx, chatModel); err != nil {
			logrus.Fatalf("初始化文本生成失败: %v", err)
		}
	} else {
		log.Warn("文本生成API密钥未配置，故事生成请求将返回错误")
	}
	storyModel, visionModel := cfg.ChatModels()

	// 初始化插画工具
	imageTool, err := newImageTool(ctx, cfg, openaiClient)
	if err != nil {
		log.WithError(err).Warn("图片后端初始化失败，全部使用占位图")
	}

	// 初始化朗读存储
	store, err := newAudioStore(cfg)
	if err != nil {
		logrus.Fatalf("初始化音频存储失败: %v", err)
	}

	pool, err := ants.NewPool(cfg.NarrationWorkers, ants.WithPanicHandler(func(p any) {
		log.Errorf("朗读任务panic: %v", p)
	}))
	if err != nil {
		logrus.Fatalf("创建协程池失败: %v", err)
	}
	defer pool.Release()

	synthesizer := narration.NewSynthesizer(openaiClient, store, narration.Options{
		Model:   cfg.TTSModel,
		Voice:   cfg.TTSVoice,
		Timeout: cfg.TTSTimeout,
	}, log)

	stories := service.NewStoryService(service.Deps{
		Credentialed: cfg.TextCredentialSet(),
		Builder: character.NewBuilder(completer, character.Options{
			Model:     visionModel,
			MaxTokens: cfg.VisionMaxTokens,
			Timeout:   cfg.VisionTimeout,
		}, log),
		Generator: script.NewGenerator(completer, script.Options{
			Model:       storyModel,
			Temperature: cfg.StoryTemperature,
			MaxTokens:   cfg.StoryMaxTokens,
			Timeout:     cfg.TextTimeout,
		}, log),
		Illustrator: illustration.NewPipeline(imageTool, illustration.Options{
			Enabled: cfg.GenerateImages,
			Timeout: cfg.ImageTimeout,
		}, log),
		Narrator: synthesizer,
		Pool:     pool,
		Logger:   log,
	})

	// 初始化Gin路由
	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Stories: stories,
		Speech:  synthesizer,
		Logger:  log,
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	// 在goroutine中启动服务器
	go func() {
		log.WithFields(logrus.Fields{
			"addr":            cfg.ServerAddr,
			"text_provider":   cfg.TextProvider,
			"image_provider":  cfg.ImageProvider,
			"generate_images": cfg.GenerateImages,
		}).Info("服务器启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("服务器关闭失败")
	}

	log.Info("服务器已关闭")
}

// newImageTool 按IMAGE_PROVIDER选择图片后端
func newImageTool(ctx context.Context, cfg *config.Config, openaiClient *openai.Client) (einotool.InvokableTool, error) {
	var gen tools.ImageGenerator
	switch cfg.ImageProvider {
	case config.ProviderArk:
		gen = volc.NewArkClient(cfg.ArkBaseURL, cfg.ArkAPIKey, cfg.ArkImageModel, cfg.ImageTimeout, cfg.ArkMock)
	case config.ProviderGemini:
		imager, err := gemini.NewImager(ctx, gemini.Options{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiImageModel,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		gen = imager
	default:
		gen = openaiClient
	}
	return tools.NewImageTool(gen, cfg.ImageSize, cfg.ImageQuality), nil
}

// newAudioStore 按AUDIO_STORE选择本地目录或S3
func newAudioStore(cfg *config.Config) (narration.AudioStore, error) {
	if cfg.AudioStore == config.AudioStoreS3 {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.S3Region)})
		if err != nil {
			return nil, fmt.Errorf("create aws session: %w", err)
		}
		return narration.NewS3Store(s3.New(sess), cfg.S3Bucket, cfg.S3Prefix, cfg.S3PublicBaseURL), nil
	}
	return narration.NewLocalStore(cfg.AudioDir, cfg.AudioURLPrefix)
}
