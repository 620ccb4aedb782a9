package llm

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/mrsingh-rishi/voice-diary/logging"
	"github.com/mrsingh-rishi/voice-diary/model"
)

// DiaryInstructions asks the model to proofread the input and rewrite it as a diary entry.
const DiaryInstructions = "あなたは、日記を書くプロです。入力を受け取って、文章を校正し、日記のように書き直してください。"

var ErrEmptyCompletion = errors.New("completion returned no choices")

type OpenAIClient struct {
	Client             *openai.Client
	SystemInstructions string
	Model              string
}

func NewOpenAIClient(client *openai.Client, systemInstructions string, modelName string) (*OpenAIClient, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model is required")
	}
	if systemInstructions == "" {
		systemInstructions = DiaryInstructions
	}
	return &OpenAIClient{
		Client:             client,
		SystemInstructions: systemInstructions,
		Model:              modelName,
	}, nil
}

// Messages builds the prompt for transcript: the system instructions, then the transcript verbatim.
func (c *OpenAIClient) Messages(transcript model.Transcript) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: c.SystemInstructions},
		{Role: openai.ChatMessageRoleUser, Content: string(transcript)},
	}
}

// Rewrite returns the first completion for transcript.
func (c *OpenAIClient) Rewrite(ctx context.Context, transcript model.Transcript) (model.ReplyText, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Messages:    c.Messages(transcript),
		// A literal 0 is dropped by omitempty and the API would fall back to 1.
		Temperature: math.SmallestNonzeroFloat32,
	}

	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "chat completion request")
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	logging.C(ctx).Info().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("rewrote transcript")
	return model.ReplyText(resp.Choices[0].Message.Content), nil
}
