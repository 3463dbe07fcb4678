package extractor

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/observers"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// GeminiConfig holds the settings of the Gemini chat model.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// ChainExtractor runs the extraction chain: prompt template -> chat model -> item parser.
type ChainExtractor struct {
	runnable  compose.Runnable[map[string]any, []model.LineItem]
	callbacks []einocb.Handler
}

// NewGeminiChatModel creates the Gemini chat model used for extraction.
func NewGeminiChatModel(ctx context.Context, cfg GeminiConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating extraction model")
		return nil, fmt.Errorf("error creating extraction model: %w", err)
	}
	return chatModel, nil
}

// NewGeminiExtractor builds a ChainExtractor backed by Gemini.
func NewGeminiExtractor(ctx context.Context, cfg GeminiConfig) (*ChainExtractor, error) {
	chatModel, err := NewGeminiChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewChainExtractor(ctx, chatModel)
}

// NewChainExtractor compiles the extraction chain around any eino chat model.
func NewChainExtractor(ctx context.Context, chatModel einomodel.BaseChatModel) (*ChainExtractor, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}

	chain := compose.NewChain[map[string]any, []model.LineItem]()
	chain.
		AppendChatTemplate(NewPromptTemplate(), compose.WithNodeName("extract_prompt")).
		AppendChatModel(chatModel, compose.WithNodeName("extract_model")).
		AppendLambda(compose.InvokableLambda(parseMessage), compose.WithNodeName("item_parser"))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to compile extraction chain")
		return nil, fmt.Errorf("failed to compile extraction chain: %w", err)
	}

	logx.Debug().Msg("Extraction chain compiled successfully")
	return &ChainExtractor{
		runnable:  runnable,
		callbacks: []einocb.Handler{observers.NewAllCallbacks()},
	}, nil
}

// ExtractItems implements model.Extractor.
func (e *ChainExtractor) ExtractItems(ctx context.Context, text string) ([]model.LineItem, error) {
	items, err := e.runnable.Invoke(ctx, templateVars(text), compose.WithCallbacks(e.callbacks...))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errx.ErrExtractionFailure, err)
	}
	return items, nil
}

func parseMessage(_ context.Context, msg *schema.Message) ([]model.LineItem, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: empty model response", errx.ErrExtractionFailure)
	}
	return ParseItems(msg.Content)
}
