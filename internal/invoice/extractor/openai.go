package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// OpenAIConfig configures any OpenAI-compatible Responses endpoint (OpenAI, Groq).
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// schemaItem mirrors the JSON the prompt asks for; only used to reflect the schema.
type schemaItem struct {
	Sl          int      `json:"sl" jsonschema_description:"1-based position of the item in the message"`
	Description string   `json:"description" jsonschema_description:"What was sold, as written by the user"`
	Qty         int      `json:"qty" jsonschema_description:"Quantity, 1 when not stated"`
	Rate        *float64 `json:"rate" jsonschema_description:"Unit price, null when not stated"`
	HSN         *string  `json:"hsn" jsonschema_description:"HSN/SAC code only if the user wrote one, otherwise null"`
}

type schemaResult struct {
	Items []schemaItem `json:"items" jsonschema_description:"Line items found in the message"`
}

// OpenAIExtractor calls the Responses API with a JSON schema output format.
type OpenAIExtractor struct {
	client      *openai.Client
	model       string
	temperature float64
	schema      map[string]any
}

func NewOpenAIExtractor(cfg OpenAIConfig) (*OpenAIExtractor, error) {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	schemaMap, err := itemsSchema()
	if err != nil {
		return nil, err
	}
	return &OpenAIExtractor{
		client:      &client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		schema:      schemaMap,
	}, nil
}

// ExtractItems implements model.Extractor.
func (e *OpenAIExtractor) ExtractItems(ctx context.Context, text string) ([]model.LineItem, error) {
	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(e.model),
		Instructions: param.NewOpt(extractSystemPrompt),
		Temperature:  param.NewOpt(e.temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(fmt.Sprintf("User Message:\n%q", text)),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type: constant.JSONSchema("json_schema"),
					Name: "invoice_line_items",
					// rate and hsn are nullable, which strict mode rejects
					Strict:      param.NewOpt(false),
					Schema:      e.schema,
					Description: param.NewOpt("Line items extracted from a chat message"),
				},
			},
		},
	}

	resp, err := e.client.Responses.New(ctx, params)
	if err != nil {
		logx.Error().Err(err).Str("model", e.model).Msg("openai responses error")
		return nil, fmt.Errorf("%w: openai responses error: %w", errx.ErrExtractionFailure, err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("%w: empty response content", errx.ErrExtractionFailure)
	}
	logx.Debug().
		Str("model", e.model).
		Int64("prompt_tokens", resp.Usage.InputTokens).
		Int64("completion_tokens", resp.Usage.OutputTokens).
		Msg("LLM usage")

	return ParseItems(content)
}

func itemsSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(schemaResult{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
