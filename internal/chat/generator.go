// Package chat proxies assistant chat messages to a hosted language model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"

	defaultGeminiModel = "gemini-1.5-flash"
)

var errEmptyReply = errors.New("chat: model returned no text")

// Generator produces a single reply to a user message.
type Generator interface {
	Provider() string
	Generate(ctx context.Context, message string) (string, error)
}

// GeminiGenerator calls Google's Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	modelID string
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelID string) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chat: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("chat: failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, modelID: modelID}, nil
}

func (g *GeminiGenerator) Provider() string { return ProviderGemini }

func (g *GeminiGenerator) Generate(ctx context.Context, message string) (string, error) {
	resp, err := g.client.GenerativeModel(g.modelID).GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("chat: gemini request failed: %w", err)
	}
	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out.WriteString(string(text))
			}
		}
		break
	}
	reply := strings.TrimSpace(out.String())
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockGenerator calls the Bedrock Converse API.
type BedrockGenerator struct {
	api     bedrockConverseAPI
	modelID string
}

func NewBedrockGenerator(api bedrockConverseAPI, modelID string) (*BedrockGenerator, error) {
	if api == nil {
		return nil, errors.New("chat: bedrock client is required")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("chat: bedrock model id is required")
	}
	return &BedrockGenerator{api: api, modelID: modelID}, nil
}

func (g *BedrockGenerator) Provider() string { return ProviderBedrock }

func (g *BedrockGenerator) Generate(ctx context.Context, message string) (string, error) {
	out, err := g.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(g.modelID),
		Messages: []brtypes.Message{{
			Role:    brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: message}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("chat: bedrock request failed: %w", err)
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errEmptyReply
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}
