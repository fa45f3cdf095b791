package rtc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLoggerFactory_Levels(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	defer func() { log.Logger = prev }()

	l := LoggerFactory{}.NewLogger("ice")
	l.Debugf("candidate %d", 1)
	l.Info("gathering")
	l.Warnf("slow %s", "peer")

	out := buf.String()
	if strings.Contains(out, "candidate 1") {
		t.Errorf("pion debug leaked at debug level: %s", out)
	}
	if !strings.Contains(out, `"scope":"ice"`) || !strings.Contains(out, "gathering") {
		t.Errorf("info line missing: %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("warn line missing: %s", out)
	}
}
