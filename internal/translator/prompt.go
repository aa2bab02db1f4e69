package translator

import (
	"fmt"

	"obfin-advisor/internal/config"
	"obfin-advisor/internal/models"
)

const systemPromptFormat = "You are a personal finance assistant. You have access to the user's spending data: " +
	"Food: $%.2f, Rent: $%.2f, Entertainment: $%.2f. " +
	"Use this information to provide personalized advice when relevant. Be conversational and helpful."

// Translator turns caller queries into upstream chat completion requests.
// Generation parameters are fixed at construction.
type Translator struct {
	model       string
	maxTokens   int
	temperature float64
}

// New builds a Translator from the upstream configuration.
func New(cfg config.UpstreamConfig) *Translator {
	return &Translator{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Build converts the query into an UpstreamRequest. Totals and question are passed
// through unvalidated.
func (t *Translator) Build(q models.IncomingQuery) models.UpstreamRequest {
	return models.UpstreamRequest{
		Model: t.model,
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: SystemPrompt(q)},
			{Role: models.RoleUser, Content: q.Question},
		},
		MaxTokens:   t.maxTokens,
		Temperature: t.temperature,
	}
}

// SystemPrompt renders the instruction embedding the three spending totals.
func SystemPrompt(q models.IncomingQuery) string {
	return fmt.Sprintf(systemPromptFormat, q.FoodTotal, q.RentTotal, q.EntertainmentTotal)
}
