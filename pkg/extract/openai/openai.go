package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"

	"github.com/graphloom/graphloom/pkg/extract"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

var defaultEntityTypes = []string{
	"PERSON", "ORGANIZATION", "LOCATION", "CONCEPT",
	"TECHNOLOGY", "EVENT", "WORK", "PRODUCT", "DATE",
}

const systemPrompt = `You are a knowledge extraction system. Identify the entities and the relationships between them in the text provided by the user.

Allowed entity types: %s.
Allowed categories: person, organization, location, concept, technology, event, work, product, date, other.

Respond with a single JSON object of this exact shape:
{"entities":[{"name":"...","type":"...","category":"..."}],"relationships":[{"source":"...","relation":"...","target":"...","context":"..."}]}

Use the exact entity names from the text as relationship sources and targets. The context field quotes or paraphrases the sentence supporting the relationship. Respond with JSON only.`

// Client implements extract.Extractor over the OpenAI chat completion API.
// It is a reference adapter; the ingestion core only depends on the
// Extractor interface.
type Client struct {
	api         *openai.Client
	model       string
	entityTypes []string
}

// NewClientParams configures the adapter. APIKey is required; BaseURL
// allows pointing at any OpenAI-compatible endpoint.
type NewClientParams struct {
	APIKey      string
	BaseURL     string
	Model       string
	EntityTypes []string
}

// NewClient creates the adapter.
func NewClient(params NewClientParams) (*Client, error) {
	if params.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(params.APIKey)
	if params.BaseURL != "" {
		cfg.BaseURL = params.BaseURL
	}
	model := params.Model
	if model == "" {
		model = DefaultModel
	}
	entityTypes := params.EntityTypes
	if len(entityTypes) == 0 {
		entityTypes = defaultEntityTypes
	}
	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		entityTypes: entityTypes,
	}, nil
}

type extractPayload struct {
	Entities []struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Category string `json:"category"`
	} `json:"entities"`
	Relationships []struct {
		Source   string `json:"source"`
		Relation string `json:"relation"`
		Target   string `json:"target"`
		Context  string `json:"context"`
	} `json:"relationships"`
}

// Extract sends one chunk or document to the model and parses the JSON
// response, repairing malformed model output before giving up.
func (c *Client) Extract(ctx context.Context, text string, contextHint string) (*extract.Result, error) {
	user := text
	if contextHint != "" {
		user = fmt.Sprintf("Position: %s\n\n%s", contextHint, text)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPrompt, strings.Join(c.entityTypes, ", ")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("extraction response contained no choices")
	}

	var payload extractPayload
	if err := unmarshalLenient(resp.Choices[0].Message.Content, &payload); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	result := extract.NewResult()
	for _, entity := range payload.Entities {
		if strings.TrimSpace(entity.Name) == "" {
			continue
		}
		result.Entities = append(result.Entities, extract.Entity{
			Name:     entity.Name,
			Type:     entity.Type,
			Category: entity.Category,
		})
	}
	for _, rel := range payload.Relationships {
		if strings.TrimSpace(rel.Source) == "" || strings.TrimSpace(rel.Target) == "" {
			continue
		}
		result.Relationships = append(result.Relationships, extract.Relationship{
			Source:   rel.Source,
			Relation: rel.Relation,
			Target:   rel.Target,
			Context:  rel.Context,
		})
	}
	return result, nil
}

// unmarshalLenient parses model JSON, attempting a repair pass when the
// output is malformed.
func unmarshalLenient(input string, out any) error {
	input = strings.TrimSpace(input)
	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	return nil
}
