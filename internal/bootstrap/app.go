package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studyvoice/internal/ai"
	"studyvoice/internal/app"
	"studyvoice/internal/cache"
	"studyvoice/internal/config"
	"studyvoice/internal/model"
	"studyvoice/internal/pkg/logger"
	"studyvoice/internal/plan"
	mysqlClient "studyvoice/internal/platform/mysql"
	rabbitmqClient "studyvoice/internal/platform/rabbitmq"
	redisClient "studyvoice/internal/platform/redis"
	"studyvoice/internal/ratelimit"
	"studyvoice/internal/repository"
	"studyvoice/internal/storage"
	"studyvoice/internal/tts"
	"studyvoice/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Blobs     storage.BlobStore
	Cache     *cache.DocumentCache
	Limiter   *ratelimit.Limiter
	Publisher *rabbitmqClient.JobPublisher

	PipelineWorker *worker.PipelineWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.Options{
		MaxOpenConns:   cfg.MySQL.MaxOpenConns,
		MaxIdleConns:   cfg.MySQL.MaxIdleConns,
		ConnectTimeout: time.Duration(cfg.MySQL.ConnectTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Document{},
		&model.UsageEvent{},
		&model.DailyUsageSummary{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		time.Duration(cfg.Redis.ConnectTimeoutSeconds)*time.Second)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.DocumentProcessQueue,
		time.Duration(cfg.RabbitMQ.ConnectTimeoutSeconds)*time.Second)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewLocalStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("init blob store failed: %w", err)
	}

	docCache := cache.NewDocumentCache(redisCli, time.Duration(cfg.Redis.DocumentTTLSeconds)*time.Second)
	limiter := ratelimit.New(time.Minute, 10*time.Minute)
	publisher := rabbitmqClient.NewJobPublisher(mqConn, cfg.RabbitMQ.DocumentProcessQueue)

	pipeline := app.NewPipeline(
		repository.NewDocumentRepository(mysqlDB),
		repository.NewUserRepository(mysqlDB),
		repository.NewUsageRepository(mysqlDB),
		blobs,
		ai.NewOpenAICompatibleClient(),
		buildTTSEngine(cfg, log),
		docCache,
		plan.Default(),
		app.PipelineConfig{
			Extract:         chatConfig(cfg.Extract),
			Summarize:       chatConfig(cfg.Summarize),
			Translate:       chatConfig(cfg.Translate),
			DefaultLanguage: cfg.App.DefaultLanguage,
			WordsPerSecond:  cfg.TTS.WordsPerSecond,
		},
		log,
	)

	pipelineWorker := worker.NewPipelineWorker(
		mqConn,
		pipeline,
		cfg.RabbitMQ.DocumentProcessQueue,
		cfg.RabbitMQ.WorkerConcurrency,
		log,
	)
	if err := pipelineWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start pipeline worker failed: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         log,
		MySQL:          mysqlDB,
		Redis:          redisCli,
		MQConn:         mqConn,
		Blobs:          blobs,
		Cache:          docCache,
		Limiter:        limiter,
		Publisher:      publisher,
		PipelineWorker: pipelineWorker,
		StartedAt:      time.Now(),
	}, nil
}

func chatConfig(mc config.ModelConfig) ai.ChatConfig {
	return ai.ChatConfig{
		BaseURL: mc.BaseURL,
		APIKey:  mc.APIKey,
		Model:   mc.Model,
	}
}

// buildTTSEngine assembles the provider waterfall in configured order.
// Unknown names are skipped so an order entry can be disabled by pointing
// it at nothing.
func buildTTSEngine(cfg *config.Config, log *zap.Logger) *tts.Engine {
	var providers []tts.Provider
	for _, name := range cfg.TTS.ProviderOrder {
		switch name {
		case "gemini":
			providers = append(providers, tts.NewGeminiSpeech(tts.GeminiSpeechConfig{
				BaseURL:  cfg.TTS.Gemini.BaseURL,
				APIKey:   cfg.TTS.Gemini.APIKey,
				Model:    cfg.TTS.Gemini.Model,
				MaxChars: cfg.TTS.Gemini.MaxChars,
				Voices:   voiceTable(cfg.TTS.Gemini),
			}))
		case "openai":
			providers = append(providers, tts.NewOpenAISpeech(tts.OpenAISpeechConfig{
				BaseURL:  cfg.TTS.OpenAI.BaseURL,
				APIKey:   cfg.TTS.OpenAI.APIKey,
				Model:    cfg.TTS.OpenAI.Model,
				MaxChars: cfg.TTS.OpenAI.MaxChars,
				Voices:   voiceTable(cfg.TTS.OpenAI),
			}))
		case "elevenlabs":
			providers = append(providers, tts.NewElevenLabs(tts.ElevenLabsConfig{
				BaseURL:  cfg.TTS.ElevenLabs.BaseURL,
				APIKey:   cfg.TTS.ElevenLabs.APIKey,
				Model:    cfg.TTS.ElevenLabs.Model,
				MaxChars: cfg.TTS.ElevenLabs.MaxChars,
				Voices:   voiceTable(cfg.TTS.ElevenLabs),
			}))
		default:
			log.Warn("unknown tts provider in order, skipping", zap.String("provider", name))
		}
	}
	return tts.NewEngine(providers, log)
}

func voiceTable(pc config.TTSProviderConfig) tts.VoiceTable {
	return tts.VoiceTable{
		Voices:  pc.Voices,
		Default: pc.DefaultVoice,
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.PipelineWorker != nil {
		a.PipelineWorker.Close()
	}
	if a.Limiter != nil {
		a.Limiter.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
