package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"

	"secondbrain/config"
	"secondbrain/controller"
	"secondbrain/middleware"
	"secondbrain/services"
	"secondbrain/vectorindex"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("MAIN: failed to load configuration: %v", err)
	}

	if cfg.UnidocLicense != "" {
		if err := services.InitPDFLicense(cfg.UnidocLicense); err != nil {
			logrus.Fatalf("MAIN: failed to set PDF license: %v", err)
		}
	}

	ctx := context.Background()

	index, err := buildIndex(cfg)
	if err != nil {
		logrus.Fatalf("MAIN: failed to initialise vector index: %v", err)
	}
	if err := index.EnsureCollection(ctx, cfg.Dimension); err != nil {
		logrus.Fatalf("MAIN: failed to ensure collection %q: %v", cfg.Collection, err)
	}
	logrus.Infof("MAIN: vector index ready (backend=%s collection=%s dims=%d)", cfg.IndexBackend, cfg.Collection, cfg.Dimension)

	llm, err := buildOpenAI(cfg)
	if err != nil {
		logrus.Fatalf("MAIN: failed to initialise OpenAI client: %v", err)
	}

	embedder := services.NewEmbeddingService(llm, cfg.EmbedModel, cfg.Dimension)
	classifier := services.NewIntentClassifier(llm, cfg.ChatModel)

	generator, generationModel, err := buildGenerator(ctx, cfg, llm)
	if err != nil {
		logrus.Fatalf("MAIN: failed to initialise answer backend: %v", err)
	}
	logrus.Infof("MAIN: answer backend %s (model=%s)", cfg.GenerationBackend, generationModel)

	ragService := services.NewRAGService(embedder, classifier, generator, index, services.RAGOptions{
		ChunkSize:       cfg.ChunkSize,
		ChunkOverlap:    cfg.ChunkOverlap,
		DefaultK:        cfg.DefaultK,
		ScoreThreshold:  cfg.ScoreThreshold,
		MaxContextChars: cfg.MaxContextChars,
		GenerationModel: generationModel,
	})

	if cfg.NotesDir != "" {
		indexer := services.NewFileIndexingService(ragService, index, cfg.NotesDir)
		go indexer.ScanAndIndexDirectory(ctx)
		go indexer.WatchDirectory(ctx)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultAllowlist()))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(cfg.RateLimitPerMin))

	ragController := controller.NewRAGController(ragService, index)
	ragController.RegisterRoutes(router)

	addr := ":" + cfg.Port
	logrus.Infof("MAIN: listening on %s", addr)
	if err := router.Run(addr); err != nil {
		logrus.Fatalf("MAIN: server stopped: %v", err)
	}
}

func buildIndex(cfg *config.Config) (vectorindex.Index, error) {
	switch cfg.IndexBackend {
	case "qdrant":
		return vectorindex.NewQdrant(vectorindex.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.Collection,
		}), nil
	case "chroma":
		return vectorindex.NewChroma(vectorindex.ChromaConfig{
			URL:        cfg.ChromaURL,
			Collection: cfg.Collection,
		})
	case "memory":
		return vectorindex.NewMemory(cfg.Collection), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

func buildOpenAI(cfg *config.Config) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.ChatModel),
		openai.WithEmbeddingModel(cfg.EmbedModel),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return openai.New(opts...)
}

func buildGenerator(ctx context.Context, cfg *config.Config, llm *openai.LLM) (services.Generator, string, error) {
	switch cfg.GenerationBackend {
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, "", err
		}
		return services.NewGeminiAnswerer(client, cfg.GeminiModel), cfg.GeminiModel, nil
	case "openai":
		return services.NewOpenAIAnswerer(llm, cfg.ChatModel), cfg.ChatModel, nil
	default:
		return nil, "", fmt.Errorf("unknown generation backend %q", cfg.GenerationBackend)
	}
}
