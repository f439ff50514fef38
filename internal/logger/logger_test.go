package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestWithContext(t *testing.T) {
	log := New()
	ctx := context.Background()

	ctxWithLogger := WithContext(ctx, log)

	if ctxWithLogger.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.String() == "" {
		t.Error("Expected the context logger to be returned")
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected a usable default logger")
	}
}

func TestStage(t *testing.T) {
	buf := &bytes.Buffer{}
	log := Stage(NewWithWriter(buf), "clean_customers")

	log.Info().Int("rows_removed", 3).Msg("cleaned")

	output := buf.String()
	if !strings.Contains(output, "clean_customers") {
		t.Errorf("Expected stage field in output, got: %s", output)
	}
	if !strings.Contains(output, "rows_removed") {
		t.Errorf("Expected counter field in output, got: %s", output)
	}
}
