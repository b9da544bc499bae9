package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloudctl/internal/recording"
)

func TestLintCassetteFindsProblems(t *testing.T) {
	c := &recording.Cassette{
		Version: 2,
		Interactions: []recording.Interaction{
			{
				Request:  recording.RecordedRequest{Method: "GET", URI: "https://management.azure.com/subscriptions/11111111-2222-3333-4444-555555555555/resourcegroups/rg"},
				Response: recording.RecordedResponse{Status: 200, Body: `{"name":`},
			},
			{
				Request:  recording.RecordedRequest{Method: "DELETE"},
				Response: recording.RecordedResponse{Status: 0},
			},
		},
	}
	problems := lintCassette("x.yaml", c)
	var msgs []string
	for _, p := range problems {
		msgs = append(msgs, p.String())
	}
	joined := strings.Join(msgs, "\n")
	for _, want := range []string{
		"x.yaml: version 2, want 1",
		"interaction 1: unscrubbed subscription 11111111-2222-3333-4444-555555555555",
		"interaction 1: response body is not valid JSON",
		"interaction 2: request method and uri are required",
		"interaction 2: invalid status 0",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in:\n%s", want, joined)
		}
	}
}

func TestLintCassetteAcceptsScrubbed(t *testing.T) {
	c := &recording.Cassette{
		Version: recording.CassetteVersion,
		Interactions: []recording.Interaction{{
			Request:  recording.RecordedRequest{Method: "GET", URI: "https://management.azure.com/subscriptions/00000000-0000-0000-0000-000000000000/resourcegroups/rg"},
			Response: recording.RecordedResponse{Status: 200, Body: `{"name":"rg"}`},
		}},
	}
	if problems := lintCassette("ok.yaml", c); len(problems) != 0 {
		t.Fatalf("unexpected problems %v", problems)
	}
}

func TestFindCassettesAndReport(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pkg", "testdata", "recordings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("version: 1\ninteractions: []\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	files, err := findCassettes(root)
	if err != nil {
		t.Fatalf("findCassettes: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one cassette, got %v", files)
	}
	var buf bytes.Buffer
	problems := lintFile(files[0])
	report(&buf, len(files), problems)
	if !strings.Contains(buf.String(), "no interactions") || !strings.Contains(buf.String(), "Problems: 1") {
		t.Fatalf("unexpected report %q", buf.String())
	}
}

func TestRepositoryCassettesAreClean(t *testing.T) {
	files, err := findCassettes(filepath.Join("..", "..", "internal"))
	if err != nil {
		t.Fatalf("findCassettes: %v", err)
	}
	for _, f := range files {
		for _, p := range lintFile(f) {
			t.Errorf("%s", p)
		}
	}
}
