package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

type fakeClassifier struct {
	res   ClassifyResult
	err   error
	empty bool // return res as-is even without a task
	calls int
	gotAt time.Time
}

// Classify answers with res, or an unknown classification when res is unset.
func (f *fakeClassifier) Classify(_ context.Context, _, _ string, now time.Time) (ClassifyResult, error) {
	f.calls++
	f.gotAt = now
	if f.res.Task == nil && f.err == nil && !f.empty {
		return parsedResult(domain.ActionUnknown), nil
	}
	return f.res, f.err
}

type fakeDispatcher struct {
	reply string
	err   error
	got   *domain.TaskClassification
	calls int
}

func (f *fakeDispatcher) Dispatch(_ context.Context, tc *domain.TaskClassification, _ string) (string, error) {
	f.calls++
	f.got = tc
	return f.reply, f.err
}

// captureLogs swaps the global logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func parsedResult(action domain.Action) ClassifyResult {
	return ClassifyResult{
		Task:    &domain.TaskClassification{ID: "cls-1", Action: action, UserID: "u1"},
		Outcome: OutcomeParsed,
	}
}

func TestAssistant_Welcome(t *testing.T) {
	a := &Assistant{}
	if a.Welcome() != "Chào mừng đến với Bot Quản lý Chi tiêu!" {
		t.Fatalf("welcome=%q", a.Welcome())
	}
}

func TestAssistant_Handle_InputErrors(t *testing.T) {
	fc := &fakeClassifier{}
	a := &Assistant{Classifier: fc, Dispatcher: &fakeDispatcher{}, MaxPromptRunes: 5}

	if _, err := a.Handle(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	// Runes, not bytes: "chi tiêu" is 8 runes.
	if _, err := a.Handle(context.Background(), "u1", "chi tiêu"); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if _, err := a.Handle(context.Background(), "u1", "  tiêu "); err != nil {
		t.Fatalf("4 runes after trim must pass, got %v", err)
	}
	if fc.calls != 1 {
		t.Fatalf("classifier calls=%d; want 1", fc.calls)
	}
}

func TestAssistant_Handle_NilTaskIsApology(t *testing.T) {
	buf := captureLogs(t)
	fc := &fakeClassifier{empty: true}
	fd := &fakeDispatcher{}
	a := &Assistant{Classifier: fc, Dispatcher: fd}

	r, err := a.Handle(context.Background(), "u1", "thêm chi tiêu")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !r.Failed || r.Text != TextApology || r.Action != domain.ActionUnknown {
		t.Fatalf("reply=%+v", r)
	}
	if fd.calls != 0 {
		t.Fatalf("dispatcher must not run without a task")
	}
	if !strings.Contains(buf.String(), "classifier returned no task") {
		t.Fatalf("missing log: %s", buf.String())
	}
}

func TestAssistant_Handle_Success(t *testing.T) {
	captureLogs(t)
	now := time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC)
	fc := &fakeClassifier{res: parsedResult(domain.ActionCreateExpense)}
	fd := &fakeDispatcher{reply: "ok!"}
	a := &Assistant{Classifier: fc, Dispatcher: fd, Now: func() time.Time { return now }}

	r, err := a.Handle(context.Background(), "u1", "thêm chi tiêu ăn trưa 50k")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if r.Text != "ok!" || r.Action != domain.ActionCreateExpense || r.Failed {
		t.Fatalf("reply=%+v", r)
	}
	if !fc.gotAt.Equal(now) || fd.got.ID != "cls-1" {
		t.Fatalf("pipeline wiring: at=%v tc=%+v", fc.gotAt, fd.got)
	}
}

func TestAssistant_Handle_ClassifyErrorBecomesApology(t *testing.T) {
	buf := captureLogs(t)
	fc := &fakeClassifier{err: errors.New("model timeout"), res: ClassifyResult{Raw: "partial"}}
	fd := &fakeDispatcher{}
	a := &Assistant{Classifier: fc, Dispatcher: fd}

	r, err := a.Handle(context.Background(), "u1", "hello")
	if err != nil {
		t.Fatalf("pipeline errors must not surface: %v", err)
	}
	if !r.Failed || r.Text != TextApology || r.Action != domain.ActionUnknown {
		t.Fatalf("reply=%+v", r)
	}
	if fd.calls != 0 {
		t.Fatalf("dispatcher must not run after a failed classification")
	}
	if !strings.Contains(buf.String(), "model timeout") {
		t.Fatalf("full error must be logged, got %s", buf.String())
	}
}

func TestAssistant_Handle_DispatchErrorBecomesApology(t *testing.T) {
	buf := captureLogs(t)
	a := &Assistant{
		Classifier: &fakeClassifier{res: parsedResult(domain.ActionGetByDate)},
		Dispatcher: &fakeDispatcher{err: ErrInvalidDate},
	}
	r, err := a.Handle(context.Background(), "u1", "chi tiêu ngày 31/02/2024")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !r.Failed || r.Text != TextApology || r.Action != domain.ActionGetByDate {
		t.Fatalf("reply=%+v", r)
	}
	out := buf.String()
	if !strings.Contains(out, `"classification_id":"cls-1"`) || !strings.Contains(out, "invalid date") {
		t.Fatalf("log missing context: %s", out)
	}
}

func TestAssistant_Handle_UnparseableReachesUnknownReply(t *testing.T) {
	captureLogs(t)
	before := testutil.ToFloat64(dispatches.WithLabelValues(string(domain.ActionUnknown), resultOK))

	cl, _ := newTestClassifier("tôi không biết", nil)
	a := &Assistant{
		Classifier: cl,
		Dispatcher: newTestDispatcher(&fakeRepo{}, dispatchNow),
	}
	r, err := a.Handle(context.Background(), "u1", "blah")
	if err != nil || r.Failed {
		t.Fatalf("reply=%+v err=%v", r, err)
	}
	if r.Text != textUnknown || r.Action != domain.ActionUnknown {
		t.Fatalf("reply=%+v", r)
	}
	if got := testutil.ToFloat64(dispatches.WithLabelValues(string(domain.ActionUnknown), resultOK)); got != before+1 {
		t.Fatalf("dispatch counter=%v; want %v", got, before+1)
	}
}

func TestLogger_FallsBackToGlobal(t *testing.T) {
	if Logger(context.Background()) != &log.Logger {
		t.Fatalf("expected global logger without a context logger")
	}
	l := zerolog.New(nil)
	ctx := l.WithContext(context.Background())
	if Logger(ctx) == &log.Logger {
		t.Fatalf("expected context logger")
	}
}
