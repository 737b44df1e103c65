package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := setup(&buf, "debug", "json"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Str("k", "v").Msg("hello")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("output = %q, want json field", buf.String())
	}
}

func TestSetup_InvalidInput(t *testing.T) {
	var buf bytes.Buffer
	if err := setup(&buf, "loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := setup(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
