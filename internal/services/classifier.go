// Package services – Classifier
//
// The Classifier turns one free-form message into a validated
// domain.TaskClassification by asking the model for a JSON object. Model
// output is untrusted: provenance fields are always overwritten locally and
// the result must pass the classification schema before it is returned.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-expense-assistant/internal/domain"
	"github.com/tbourn/go-expense-assistant/internal/llm"
	"github.com/tbourn/go-expense-assistant/internal/validation"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Completer is the model boundary. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Outcome tells a genuinely parsed classification apart from the fallback
// produced for a reply that was not a JSON object.
type Outcome string

const (
	OutcomeParsed      Outcome = "parsed"
	OutcomeUnparseable Outcome = "unparseable"
)

// ClassifyResult is the output of Classify. Raw keeps the model reply for
// logging.
type ClassifyResult struct {
	Task    *domain.TaskClassification
	Outcome Outcome
	Raw     string
}

// Classifier asks the model for a structured intent.
type Classifier struct {
	LLM         Completer
	Temperature float32

	// NewID generates classification ids; defaults to uuid.NewString.
	NewID func() string
}

// Classify classifies message on behalf of userID at instant now.
//
// Transport errors and schema violations are returned as errors. A reply
// that cannot be read as a JSON object is not an error: the result carries
// an unknown classification with OutcomeUnparseable.
func (c *Classifier) Classify(ctx context.Context, message, userID string, now time.Time) (ClassifyResult, error) {
	tr := otel.Tracer("services/Classifier")
	ctx, span := tr.Start(ctx, "Classify",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("message.runes", len([]rune(message))),
		),
	)
	defer span.End()

	id := c.newID()
	createdAt := now.UTC()

	started := time.Now()
	raw, err := c.LLM.Complete(ctx, llm.Request{
		System:      SystemPrompt(now),
		User:        message,
		Temperature: c.Temperature,
		JSON:        true,
	})
	llmLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		classifications.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return ClassifyResult{}, fmt.Errorf("classify: %w", err)
	}

	doc, ok := parseObject(raw)
	if !ok {
		classifications.WithLabelValues(string(OutcomeUnparseable)).Inc()
		span.SetAttributes(attribute.String("classify.outcome", string(OutcomeUnparseable)))
		return ClassifyResult{
			Task:    domain.UnknownClassification(id, userID, createdAt),
			Outcome: OutcomeUnparseable,
			Raw:     raw,
		}, nil
	}

	// Provenance is never taken from the model.
	doc["id"] = id
	doc["user_id"] = userID
	doc["created_at"] = createdAt.Format(time.RFC3339Nano)

	tc, err := validation.DecodeClassification(doc)
	if err != nil {
		classifications.WithLabelValues("invalid").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid classification")
		return ClassifyResult{Raw: raw}, fmt.Errorf("classify: %w", err)
	}

	classifications.WithLabelValues(string(OutcomeParsed)).Inc()
	span.SetAttributes(
		attribute.String("classify.outcome", string(OutcomeParsed)),
		attribute.String("classify.action", string(tc.Action)),
	)
	return ClassifyResult{Task: tc, Outcome: OutcomeParsed, Raw: raw}, nil
}

func (c *Classifier) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

// parseObject reads raw as a JSON object. Markdown fences and prose around
// the outermost braces are ignored.
func parseObject(raw string) (map[string]any, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, false
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}
