package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"obfin-advisor/internal/metrics"
	"obfin-advisor/internal/models"
	"obfin-advisor/internal/provider"
	"obfin-advisor/internal/translator"
)

// ExtractionSentinel is returned when a successful payload carries no usable answer.
const ExtractionSentinel = "Could not extract answer from response"

// Relay answers queries by translating them, calling the upstream provider and
// mapping every outcome to an OutgoingAnswer. It holds no per-request state and is
// safe for concurrent use.
type Relay struct {
	translator *translator.Translator
	provider   provider.Provider
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

// New constructs a relay. A nil logger is replaced by a no-op logger and a nil
// recorder disables metrics.
func New(tr *translator.Translator, p provider.Provider, log *zap.Logger, rec *metrics.Recorder) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		translator: tr,
		provider:   p,
		logger:     log.With(zap.String("provider", p.Name())),
		metrics:    rec,
	}
}

// Answer runs the full pipeline for one query.
func (r *Relay) Answer(ctx context.Context, q models.IncomingQuery) models.OutgoingAnswer {
	return r.Forward(ctx, r.translator.Build(q))
}

// Forward issues req upstream and converts the result. It never fails; upstream
// errors become human-readable answer text.
func (r *Relay) Forward(ctx context.Context, req models.UpstreamRequest) models.OutgoingAnswer {
	start := time.Now()
	result := r.provider.Complete(ctx, req)
	r.metrics.ObserveDuration(time.Since(start))

	switch result.Kind {
	case models.ResultSuccess:
		return r.extract(result.Payload)

	case models.ResultTransportFailure:
		r.metrics.ObserveOutcome(result.Kind.String())
		r.logger.Error("upstream request failed", zap.Error(result.Err))
		return models.OutgoingAnswer{Text: fmt.Sprintf("Request error: %v", result.Err)}

	case models.ResultStatusFailure:
		r.metrics.ObserveOutcome(result.Kind.String())
		status := statusLine(result.StatusCode)
		r.logger.Error("upstream returned error status",
			zap.Int("status", result.StatusCode),
			zap.String("body", result.Body),
		)
		return models.OutgoingAnswer{Text: fmt.Sprintf("API error %s: %s", status, result.Body)}

	case models.ResultParseFailure:
		r.metrics.ObserveOutcome(result.Kind.String())
		r.logger.Error("upstream response is not valid JSON", zap.Error(result.Err))
		return models.OutgoingAnswer{Text: fmt.Sprintf("Parse error: %v", result.Err)}

	default:
		r.metrics.ObserveOutcome(metrics.OutcomeUnknown)
		r.logger.Error("unknown upstream result", zap.Stringer("kind", result.Kind))
		return models.OutgoingAnswer{Text: fmt.Sprintf("Internal error: unexpected upstream result %s", result.Kind)}
	}
}

func (r *Relay) extract(payload []byte) models.OutgoingAnswer {
	r.logger.Info("upstream response", zap.String("payload", prettyJSON(payload)))

	answer, ok := ExtractAnswer(payload)
	if !ok {
		r.metrics.ObserveOutcome(metrics.OutcomeExtractionMiss)
		r.logger.Warn("upstream response has no answer at choices[0].message.content")
		return models.OutgoingAnswer{Text: ExtractionSentinel}
	}

	r.metrics.ObserveOutcome(models.ResultSuccess.String())
	return models.OutgoingAnswer{Text: answer}
}

type completionEnvelope struct {
	Choices []json.RawMessage `json:"choices"`
}

type completionChoice struct {
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// ExtractAnswer reads choices[0].message.content from a completion payload. It
// reports false when the path is absent or the value is not a string.
func ExtractAnswer(payload []byte) (string, bool) {
	var env completionEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || len(env.Choices) == 0 {
		return "", false
	}

	var choice completionChoice
	if err := json.Unmarshal(env.Choices[0], &choice); err != nil {
		return "", false
	}

	content := bytes.TrimSpace(choice.Message.Content)
	if len(content) == 0 || content[0] != '"' {
		return "", false
	}

	var text string
	if err := json.Unmarshal(content, &text); err != nil {
		return "", false
	}
	return text, true
}

// statusLine renders a code the way HTTP clients print it, e.g. "401 Unauthorized".
func statusLine(code int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

func prettyJSON(payload []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return string(payload)
	}
	return buf.String()
}
