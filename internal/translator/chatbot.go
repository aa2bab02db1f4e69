package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"obfin-advisor/internal/models"
)

// ErrMalformedJSON indicates the request body is not a single JSON document.
var ErrMalformedJSON = errors.New("malformed JSON payload")

const chatbotRequestSchema = `{
	"type": "object",
	"required": ["user_question", "total_food", "total_rent", "total_entertainment"],
	"properties": {
		"user_question":       {"type": "string"},
		"total_food":          {"type": "number"},
		"total_rent":          {"type": "number"},
		"total_entertainment": {"type": "number"}
	}
}`

var requestSchema = mustCompileSchema(chatbotRequestSchema)

// ChatbotRequest models the POST /chatbot request payload.
type ChatbotRequest struct {
	UserQuestion       string  `json:"user_question"`
	TotalFood          float64 `json:"total_food"`
	TotalRent          float64 `json:"total_rent"`
	TotalEntertainment float64 `json:"total_entertainment"`
}

// ChatbotResponse models the POST /chatbot response payload.
type ChatbotResponse struct {
	ChatResponse string `json:"chat_response"`
}

// SchemaError lists every way a well-formed payload failed the request schema.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid chatbot request: " + strings.Join(e.Problems, "; ")
}

// DecodeChatbotRequest validates raw bytes against the request schema and decodes
// them. It returns ErrMalformedJSON for syntactically broken input and a
// *SchemaError when fields are missing or mistyped.
func DecodeChatbotRequest(data []byte) (ChatbotRequest, error) {
	if !json.Valid(data) {
		return ChatbotRequest{}, ErrMalformedJSON
	}

	result, err := requestSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return ChatbotRequest{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			problems[i] = desc.String()
		}
		return ChatbotRequest{}, &SchemaError{Problems: problems}
	}

	var req ChatbotRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ChatbotRequest{}, fmt.Errorf("decode chatbot request: %w", err)
	}
	return req, nil
}

// Query converts the wire request into the domain query.
func (r ChatbotRequest) Query() models.IncomingQuery {
	return models.IncomingQuery{
		Question:           r.UserQuestion,
		FoodTotal:          r.TotalFood,
		RentTotal:          r.TotalRent,
		EntertainmentTotal: r.TotalEntertainment,
	}
}

// FromAnswer builds the wire response from a relayed answer.
func FromAnswer(answer models.OutgoingAnswer) ChatbotResponse {
	return ChatbotResponse{ChatResponse: answer.Text}
}

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile chatbot request schema: %v", err))
	}
	return schema
}
