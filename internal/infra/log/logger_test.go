package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerLevelByEnv(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "prod")
	logger.Debug().Msg("скрытое")
	logger.Info().Msg("видимое")
	out := buf.String()
	if strings.Contains(out, "скрытое") {
		t.Fatalf("debug не должен писаться вне dev: %s", out)
	}
	if !strings.Contains(out, "видимое") {
		t.Fatalf("ожидали info сообщение: %s", out)
	}

	buf.Reset()
	dev := newLogger(&buf, "dev")
	dev.Debug().Msg("отладка")
	if !strings.Contains(buf.String(), "отладка") {
		t.Fatalf("ожидали debug сообщение в dev")
	}
}
