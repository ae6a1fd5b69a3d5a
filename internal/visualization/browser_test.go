package visualization

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestBrowserTarget(t *testing.T) {
	got, err := BrowserTarget("http://127.0.0.1:8732/")
	if err != nil || got != "http://127.0.0.1:8732/" {
		t.Fatalf("BrowserTarget(http) = %q, %v", got, err)
	}

	dir := t.TempDir()
	got, err = BrowserTarget(filepath.Join(dir, "network.html"))
	if err != nil {
		t.Fatalf("BrowserTarget(file): %v", err)
	}
	if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, "/network.html") {
		t.Errorf("BrowserTarget(file) = %q", got)
	}
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos    string
		program string
		wantErr bool
	}{
		{"linux", "xdg-open", false},
		{"darwin", "open", false},
		{"windows", "rundll32", false},
		{"plan9", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "file:///tmp/network.html")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("browserCommand: %v", err)
			}
			if filepath.Base(cmd.Args[0]) != tt.program {
				t.Errorf("program = %q, want %q", cmd.Args[0], tt.program)
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "file:///tmp/network.html" {
				t.Errorf("target = %q", last)
			}
		})
	}
}
