package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/contrib/internal/engine"
	"github.com/panbanda/contrib/internal/output"
	"github.com/panbanda/contrib/internal/testutil"
	"github.com/panbanda/contrib/internal/vcs/mocks"
	"github.com/panbanda/contrib/pkg/config"
	"github.com/panbanda/contrib/pkg/orgs"
	"github.com/stretchr/testify/mock"
)

// newOpener returns an opener over a two-commit repository where a.py is
// blamed on Alice and b.py on Bob, with Alice mapped to LLNL.
func newOpener(t *testing.T) Opener {
	t.Helper()
	return newOpenerWithOrgMap(t, orgs.Map{"Alice": "LLNL"})
}

func newOpenerWithOrgMap(t *testing.T, orgMap orgs.Map) Opener {
	t.Helper()
	repo := testutil.NewRepo(t)
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	first := repo.Commit("Alice", start, map[string]string{"a.py": "x\n"})
	second := repo.Commit("Bob", start.AddDate(0, 1, 0), map[string]string{"b.py": "y\n"})
	log := fmt.Sprintf("%s %s\n%s %s\n",
		second, start.AddDate(0, 1, 0).Format(time.RFC3339),
		first, start.Format(time.RFC3339))

	runner := mocks.NewMockRunner(t)
	runner.EXPECT().Run(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, args []string) ([]byte, error) {
		switch args[0] {
		case "log":
			return []byte(log), nil
		case "ls-tree":
			return []byte("a.py\x00b.py\x00"), nil
		case "blame":
			author := "Alice"
			if args[len(args)-1] == "b.py" {
				author = "Bob"
			}
			return []byte(fmt.Sprintf("%s 1 1 1\nauthor %s\n\tcode\n", first, author)), nil
		}
		return nil, fmt.Errorf("unexpected git %v", args)
	}).Maybe()

	cache := filepath.Join(t.TempDir(), "line-data")
	return func(path string) (*engine.Env, error) {
		if path != config.DefaultFile {
			return nil, errors.New("no such config " + path)
		}
		cfg := config.Default(repo.Path)
		cfg.Contrib.Cache = cache
		cfg.OrgMap = orgMap
		return engine.NewEnv(cfg, engine.Options{Runner: runner, Jobs: 2})
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test", nil)
	if server == nil || server.server == nil {
		t.Fatal("NewServer() returned an incomplete server")
	}
	if NewServer("", nil) == nil {
		t.Fatal("NewServer(\"\") returned nil")
	}
}

func TestToolDescriptions(t *testing.T) {
	for name, fn := range map[string]func() string{"series": describeSeries, "indexStatus": describeIndexStatus} {
		desc := fn()
		for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
			if !strings.Contains(desc, section) {
				t.Errorf("%s description missing %s section", name, section)
			}
		}
	}
}

func TestGetFormat(t *testing.T) {
	tests := map[string]output.Format{
		"":         output.FormatTOON,
		"toon":     output.FormatTOON,
		"json":     output.FormatJSON,
		"markdown": output.FormatMarkdown,
		"md":       output.FormatMarkdown,
	}
	for in, want := range tests {
		if got := getFormat(in); got != want {
			t.Errorf("getFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleSeries(t *testing.T) {
	s := NewServer("test", newOpener(t))

	res, _, err := s.handleSeries(context.Background(), nil, SeriesInput{
		HistoryInput: HistoryInput{Linear: true},
		By:           "organization",
		Format:       "json",
	})
	if err != nil {
		t.Fatalf("handleSeries() error: %v", err)
	}
	if res.IsError {
		t.Fatalf("handleSeries() tool error: %s", resultText(t, res))
	}

	var got []output.SeriesData
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(got) != 1 || got[0].By != "organization" {
		t.Fatalf("got %+v, want one organization series", got)
	}
	if len(got[0].Points) != 2 {
		t.Fatalf("got %d points, want 2", len(got[0].Points))
	}
	last := got[0].Points[1].Counts
	if last["LLNL"] != 1 || last[orgs.Unknown] != 1 {
		t.Errorf("last counts = %v, want LLNL and unknown at 1", last)
	}
}

func TestHandleSeries_Errors(t *testing.T) {
	s := NewServer("test", newOpener(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		input SeriesInput
	}{
		{"missing config", SeriesInput{HistoryInput: HistoryInput{Config: "other.yaml"}}},
		{"unknown part", SeriesInput{Part: "docs"}},
		{"unknown key", SeriesInput{By: "team"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := s.handleSeries(ctx, nil, tt.input)
			if err != nil {
				t.Fatalf("handleSeries() error: %v", err)
			}
			if !res.IsError {
				t.Errorf("handleSeries() should report a tool error")
			}
		})
	}
}

func TestHandleIndexStatus(t *testing.T) {
	s := NewServer("test", newOpener(t))
	ctx := context.Background()

	res, _, err := s.handleIndexStatus(ctx, nil, HistoryInput{Linear: true})
	if err != nil || res.IsError {
		t.Fatalf("handleIndexStatus() = %v, %v", res, err)
	}
	var st engine.Status
	if err := json.Unmarshal([]byte(resultText(t, res)), &st); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if st.Commits != 2 || st.Pending != 2 {
		t.Errorf("status = %+v, want 2 commits all pending", st)
	}
}

func TestHandleSeries_NoOrgMap(t *testing.T) {
	s := NewServer("test", newOpenerWithOrgMap(t, orgs.Map{}))
	ctx := context.Background()

	res, _, err := s.handleSeries(ctx, nil, SeriesInput{HistoryInput: HistoryInput{Linear: true}, Format: "json"})
	if err != nil || res.IsError {
		t.Fatalf("handleSeries() = %v, %v", res, err)
	}
	var got []output.SeriesData
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(got) != 1 || got[0].By != "author" {
		t.Errorf("got %+v, want only the author series", got)
	}

	res, _, err = s.handleSeries(ctx, nil, SeriesInput{HistoryInput: HistoryInput{Linear: true}, By: "organization"})
	if err != nil {
		t.Fatalf("handleSeries() error: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "no org map") {
		t.Errorf("organization without an org map should be a tool error, got %s", resultText(t, res))
	}
}

func TestParseFrontmatter(t *testing.T) {
	fm, body := parseFrontmatter([]byte("---\ndescription: hello\narguments:\n  - name: config\n    required: true\n---\nbody text\n"))
	if fm.Description != "hello" || body != "body text\n" {
		t.Errorf("parseFrontmatter() = %+v, %q", fm, body)
	}
	if len(fm.Arguments) != 1 || fm.Arguments[0].Name != "config" || !fm.Arguments[0].Required {
		t.Errorf("arguments = %+v", fm.Arguments)
	}

	fm, body = parseFrontmatter([]byte("no frontmatter"))
	if fm.Description != "" || body != "no frontmatter" {
		t.Errorf("parseFrontmatter() = %+v, %q", fm, body)
	}
}

func renderPrompt(t *testing.T, s *Server, args map[string]string) (string, error) {
	t.Helper()
	content, err := promptFiles.ReadFile("prompts/contributor-trends.md")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	fm, body := parseFrontmatter(content)
	tmpl := template.Must(template.New("contributor-trends").Funcs(promptFuncs).Parse(body))

	res, err := s.promptHandler(fm.Description, tmpl)(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "contributor-trends", Arguments: args},
	})
	if err != nil {
		return "", err
	}
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(res.Messages))
	}
	return res.Messages[0].Content.(*mcp.TextContent).Text, nil
}

func TestPromptHandler_RendersConfiguration(t *testing.T) {
	text, err := renderPrompt(t, NewServer("test", newOpener(t)), nil)
	if err != nil {
		t.Fatalf("prompt error: %v", err)
	}
	for _, want := range []string{
		"defines these parts: all.",
		`config "contrib.yaml" and by "organization"`,
		"contrib update-org-map",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "{{") {
		t.Errorf("prompt has unrendered actions:\n%s", text)
	}

	text, err = renderPrompt(t, NewServer("test", newOpenerWithOrgMap(t, orgs.Map{})), nil)
	if err != nil {
		t.Fatalf("prompt error: %v", err)
	}
	if !strings.Contains(text, `by "author"`) || !strings.Contains(text, "only author series") {
		t.Errorf("prompt without org map:\n%s", text)
	}
	if strings.Contains(text, "update-org-map") {
		t.Errorf("prompt without org map should not mention the unknown bucket:\n%s", text)
	}
}

func TestPromptHandler_UnknownConfig(t *testing.T) {
	_, err := renderPrompt(t, NewServer("test", newOpener(t)), map[string]string{"config": "other.yaml"})
	if err == nil {
		t.Fatal("expected an error for an unknown configuration")
	}
}
