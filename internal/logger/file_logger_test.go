package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)

	l.Info("starting %s", "up")
	l.Warning("low %s", "samples")
	l.Error("boom")
	l.Trade("filled %d", 10)
	l.Risk("breach")

	out := buf.String()
	for _, want := range []string{"[INFO] starting up", "[WARN] low samples", "[ERROR] boom", "[TRADE] filled 10", "[RISK] breach"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogErrorWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)

	l.LogError("submit order", errors.New("connection reset"))

	if !strings.Contains(buf.String(), "submit order: connection reset") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestLogDecision(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)

	l.LogDecision("AAPL", true, "", 9000, 1000)
	l.LogDecision("MSFT", false, "cooldown active", 0, 0)

	out := buf.String()
	if !strings.Contains(out, "symbol=AAPL approved max_size=9000.00") {
		t.Errorf("approval line missing: %s", out)
	}
	if !strings.Contains(out, `symbol=MSFT REJECTED reason="cooldown active"`) {
		t.Errorf("rejection line missing: %s", out)
	}
}

func TestLogBatch(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)

	l.LogBatch(8, 3, 2, 1)

	if !strings.Contains(buf.String(), "batch drained=8 aggregated=3 submitted=2 failed=1") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestCloseWithoutFileIsNoop(t *testing.T) {
	l := NewWithWriter("test", &bytes.Buffer{})
	if err := l.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
