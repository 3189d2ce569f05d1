package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/logging"
)

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantLog  string
	}{
		{"unexpected", errors.New("disk on fire"), "ERR000", "disk on fire"},
		{"missing file", fmt.Errorf("%w: cards.csv", core.ErrFileNotFound), "FILE003", "cards.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs, out bytes.Buffer
			reportError(logging.New(&logs, "info", "text"), &out, tt.err)

			if !strings.Contains(logs.String(), "level=ERROR") {
				t.Errorf("cause not logged at error level: %q", logs.String())
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("log = %q, want it to contain %q", logs.String(), tt.wantLog)
			}
			if !strings.Contains(out.String(), "Code: "+tt.wantCode) {
				t.Errorf("output = %q, want code %s", out.String(), tt.wantCode)
			}
		})
	}
}
