package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"cloudctl/internal/arm"
	"cloudctl/internal/recording"
)

var subscriptionRe = regexp.MustCompile(`(?i)/subscriptions/([0-9a-f-]{36})`)

type problem struct {
	File        string
	Interaction int
	Message     string
}

func (p problem) String() string {
	if p.Interaction < 0 {
		return fmt.Sprintf("%s: %s", p.File, p.Message)
	}
	return fmt.Sprintf("%s: interaction %d: %s", p.File, p.Interaction+1, p.Message)
}

func main() {
	var root string
	flag.StringVar(&root, "root", ".", "directory to scan for cassettes")
	flag.Parse()

	files, err := findCassettes(root)
	if err != nil {
		exitErr(fmt.Errorf("scan cassettes: %w", err))
	}
	if len(files) == 0 {
		exitErr(errors.New("no cassettes found"))
	}
	var problems []problem
	for _, f := range files {
		problems = append(problems, lintFile(f)...)
	}
	report(os.Stdout, len(files), problems)
	if len(problems) > 0 {
		os.Exit(1)
	}
}

// findCassettes возвращает YAML-файлы из каталогов testdata/recordings.
func findCassettes(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".yaml" && filepath.Base(filepath.Dir(path)) == "recordings" {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func lintFile(path string) []problem {
	c, err := recording.Load(path)
	if err != nil {
		return []problem{{File: path, Interaction: -1, Message: err.Error()}}
	}
	return lintCassette(path, c)
}

func lintCassette(path string, c *recording.Cassette) []problem {
	var out []problem
	add := func(i int, format string, args ...any) {
		out = append(out, problem{File: path, Interaction: i, Message: fmt.Sprintf(format, args...)})
	}
	if c.Version != recording.CassetteVersion {
		add(-1, "version %d, want %d", c.Version, recording.CassetteVersion)
	}
	if len(c.Interactions) == 0 {
		add(-1, "no interactions")
	}
	for i, in := range c.Interactions {
		if in.Request.Method == "" || in.Request.URI == "" {
			add(i, "request method and uri are required")
		}
		if in.Response.Status < 100 || in.Response.Status > 599 {
			add(i, "invalid status %d", in.Response.Status)
		}
		for _, m := range subscriptionRe.FindAllStringSubmatch(in.Request.URI+" "+in.Response.Body, -1) {
			if m[1] != arm.MockedSubscription {
				add(i, "unscrubbed subscription %s", m[1])
			}
		}
		if isJSON(in.Response) && in.Response.Body != "" && !gjson.Valid(in.Response.Body) {
			add(i, "response body is not valid JSON")
		}
	}
	return out
}

func isJSON(r recording.RecordedResponse) bool {
	ct := r.Header().Get("Content-Type")
	if ct == "" {
		return r.Status != http.StatusNoContent
	}
	return strings.Contains(ct, "json")
}

func report(w io.Writer, files int, problems []problem) {
	for _, p := range problems {
		fmt.Fprintln(w, p.String())
	}
	fmt.Fprintf(w, "Cassettes: %d\n", files)
	fmt.Fprintf(w, "Problems: %d\n", len(problems))
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "cassettelint: %v\n", err)
	os.Exit(1)
}
