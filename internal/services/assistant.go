// Package services – Assistant
//
// Assistant is the entry point shared by every chat adapter. It runs one
// classify-then-dispatch cycle per message and hides pipeline failures
// behind a single apology text, logging the full error instead.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-expense-assistant/internal/domain"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// IntentClassifier is implemented by *Classifier.
type IntentClassifier interface {
	Classify(ctx context.Context, message, userID string, now time.Time) (ClassifyResult, error)
}

// ActionDispatcher is implemented by *Dispatcher.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, tc *domain.TaskClassification, userID string) (string, error)
}

// Reply is the outcome of one message.
type Reply struct {
	Text   string
	Action domain.Action
	// Failed is set when Text is the apology for a pipeline error.
	Failed bool
}

// Assistant wires the classifier to the dispatcher.
type Assistant struct {
	Classifier IntentClassifier
	Dispatcher ActionDispatcher

	// Optional guard; zero disables it.
	MaxPromptRunes int

	// Now returns the current instant; defaults to time.Now.
	Now func() time.Time
}

// Welcome returns the greeting sent when a session starts.
func (a *Assistant) Welcome() string { return TextWelcome }

// Handle processes one inbound message from userID.
//
// Only input errors (ErrEmptyPrompt, ErrTooLong) are returned. Any failure
// after the input is accepted yields the apology reply with Failed set.
func (a *Assistant) Handle(ctx context.Context, userID, text string) (Reply, error) {
	tr := otel.Tracer("services/Assistant")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyPrompt
	}
	if a.MaxPromptRunes > 0 && utf8.RuneCountInString(text) > a.MaxPromptRunes {
		return Reply{}, ErrTooLong
	}

	lg := log.With().Str("user_id", userID).Logger()
	ctx = lg.WithContext(ctx)
	lg.Info().Str("input", text).Msg("message received")

	res, err := a.Classifier.Classify(ctx, text, userID, a.now())
	if err != nil {
		lg.Error().Err(err).Str("raw", res.Raw).Msg("classification failed")
		return apology(domain.ActionUnknown), nil
	}
	tc := res.Task
	if tc == nil {
		lg.Error().Str("raw", res.Raw).Msg("classifier returned no task")
		return apology(domain.ActionUnknown), nil
	}
	lg = lg.With().
		Str("classification_id", tc.ID).
		Str("action", string(tc.Action)).
		Logger()
	lg.Debug().
		Str("outcome", string(res.Outcome)).
		Str("task_type", string(tc.TaskType)).
		Str("time_range", tc.TimeRange).
		Interface("parameters", tc.Parameters).
		Msg("classified")
	if res.Outcome == OutcomeUnparseable {
		lg.Warn().Str("raw", res.Raw).Msg("model reply was not a JSON object")
	}

	reply, err := a.Dispatcher.Dispatch(lg.WithContext(ctx), tc, userID)
	if err != nil {
		lg.Error().Err(err).Msg("dispatch failed")
		return apology(tc.Action), nil
	}

	lg.Info().Str("reply", reply).Msg("reply sent")
	span.SetAttributes(attribute.String("action", string(tc.Action)))
	return Reply{Text: reply, Action: tc.Action}, nil
}

func (a *Assistant) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func apology(action domain.Action) Reply {
	return Reply{Text: TextApology, Action: action, Failed: true}
}

// Logger returns the logger attached to ctx by Handle, or the global logger.
func Logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
