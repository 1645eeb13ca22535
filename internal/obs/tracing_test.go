package obs

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitTracingExporters(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []string{"", "none", "stdout"} {
		shutdown, err := InitTracing(ctx, kind, "")
		if err != nil {
			t.Fatalf("%q: %v", kind, err)
		}
		if err := shutdown(ctx); err != nil {
			t.Fatalf("%q shutdown: %v", kind, err)
		}
	}
	if _, err := InitTracing(ctx, "zipkin", ""); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestInitLoggerLevel(t *testing.T) {
	InitLogger("debug")
	if Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug, got %v", Logger.GetLevel())
	}
	InitLogger("loud")
	if Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info fallback, got %v", Logger.GetLevel())
	}
}
