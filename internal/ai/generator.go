package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/example/aayra/pkg/models"
)

const defaultModel = openai.GPT3Dot5Turbo

// Generator turns uploaded study materials into flashcards, quiz questions
// and a summary
type Generator struct {
	client *openai.Client
	model  string
}

// New creates a generator from the OPENAI_API_KEY environment variable
func New() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &Generator{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

const systemPrompt = `You are a study assistant. Given study materials, respond with ONLY a JSON object:
{"flashcards":[{"question":"...","answer":"..."}],"quiz_questions":[{"question":"...","options":["..."],"correct_answer":"...","explanation":"..."}],"summary":"..."}
Produce 5 flashcards, 3 quiz questions with 4 options each, and a short summary.`

// Generate asks the model to produce study content for the materials
func (g *Generator) Generate(ctx context.Context, subject, topic string, materials []string) (*models.GeneratedContent, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Subject: %s\nTopic: %s\n\nMaterials:\n", subject, topic)
	for _, m := range materials {
		prompt.WriteString(m)
		prompt.WriteString("\n")
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	// Models occasionally wrap the JSON in a code fence
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &content); err != nil {
		return nil, fmt.Errorf("failed to parse generated content: %w", err)
	}
	if len(content.Flashcards) == 0 && len(content.QuizQuestions) == 0 && content.Summary == "" {
		return nil, fmt.Errorf("generated content is empty")
	}
	return &content, nil
}

// Fallback returns deterministic placeholder content used when generation
// fails, so the session flow is never blocked on the AI collaborator
func (g *Generator) Fallback(subject, topic string) *models.GeneratedContent {
	return FallbackContent(subject, topic)
}

// FallbackContent builds placeholder study content for a subject and topic
func FallbackContent(subject, topic string) *models.GeneratedContent {
	return &models.GeneratedContent{
		Flashcards: []models.Flashcard{
			{
				Question: fmt.Sprintf("What is the main concept of %s in %s?", topic, subject),
				Answer:   fmt.Sprintf("Review your uploaded materials on %s.", topic),
			},
		},
		QuizQuestions: []models.QuizQuestion{
			{
				Question:      fmt.Sprintf("Which subject does the topic %q belong to?", topic),
				Options:       []string{subject, "History", "Geography", "Art"},
				CorrectAnswer: subject,
				Explanation:   fmt.Sprintf("This session covers %s within %s.", topic, subject),
			},
		},
		Summary: fmt.Sprintf("Automatic content generation was unavailable for %s - %s. Review your uploaded materials directly.", subject, topic),
	}
}
