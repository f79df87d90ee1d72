package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/contrib/internal/engine"
	"github.com/panbanda/contrib/internal/output"
	"github.com/panbanda/contrib/internal/vcs"
	"github.com/panbanda/contrib/pkg/config"
)

const (
	defaultSamples = 50
	defaultFuzz    = 10
	defaultTop     = 20
)

// HistoryInput selects the commits to look at.
type HistoryInput struct {
	Config  string `json:"config,omitempty" jsonschema:"Path to the contrib configuration file. Defaults to contrib.yaml."`
	Samples int    `json:"samples,omitempty" jsonschema:"Number of commits to sample, evenly spaced in time. Default 50."`
	Linear  bool   `json:"linear,omitempty" jsonschema:"Use every first-parent commit instead of sampling."`
	Fuzz    int    `json:"fuzz,omitempty" jsonschema:"Snap samples onto indexed commits within this percent of the average gap. Default 10, -1 disables."`
}

// SeriesInput adds series selection and formatting options.
type SeriesInput struct {
	HistoryInput
	Part   string `json:"part,omitempty" jsonschema:"Only this part. Defaults to every configured part."`
	By     string `json:"by,omitempty" jsonschema:"Attribution key: author or organization. Defaults to author, plus organization when an org map is configured."`
	Top    int    `json:"top,omitempty" jsonschema:"Contributors listed per series in text formats. Default 20."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// prepare opens the configuration of input and lists its history.
func (s *Server) prepare(ctx context.Context, input HistoryInput) (*engine.Indexer, []vcs.Commit, error) {
	path := input.Config
	if path == "" {
		path = config.DefaultFile
	}
	env, err := s.open(path)
	if err != nil {
		return nil, nil, err
	}
	ix, err := engine.NewIndexer(env)
	if err != nil {
		return nil, nil, err
	}

	samples := input.Samples
	switch {
	case input.Linear:
		samples = 0
	case samples <= 0:
		samples = defaultSamples
	}
	fuzz := input.Fuzz
	switch {
	case fuzz < 0:
		fuzz = 0
	case fuzz == 0:
		fuzz = defaultFuzz
	}

	hist, err := ix.History(ctx, samples, fuzz)
	if err != nil {
		return nil, nil, err
	}
	return ix, hist, nil
}

func (s *Server) handleSeries(ctx context.Context, req *mcp.CallToolRequest, input SeriesInput) (*mcp.CallToolResult, any, error) {
	ix, hist, err := s.prepare(ctx, input.HistoryInput)
	if err != nil {
		return toolError(err.Error())
	}
	if err := ix.Build(ctx, hist); err != nil {
		return toolError(err.Error())
	}

	parts := ix.Parts()
	if input.Part != "" {
		if _, ok := ix.Index(input.Part); !ok {
			return toolError(fmt.Sprintf("unknown part %q", input.Part))
		}
		parts = []string{input.Part}
	}
	bys := ix.Bys()
	if input.By != "" {
		by, err := engine.ParseBy(input.By)
		if err != nil {
			return toolError(err.Error())
		}
		if !slices.Contains(bys, by) {
			return toolError("no org map configured; organization series are unavailable")
		}
		bys = []engine.By{by}
	}

	var series []*engine.Series
	for _, part := range parts {
		for _, by := range bys {
			ser, err := ix.Series(ctx, part, by, hist)
			if err != nil {
				return toolError(err.Error())
			}
			series = append(series, ser)
		}
	}

	top := input.Top
	if top <= 0 {
		top = defaultTop
	}
	return toolResult(output.Summary(series, top), getFormat(input.Format))
}

func (s *Server) handleIndexStatus(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, any, error) {
	ix, hist, err := s.prepare(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	st, err := ix.Status(ctx, hist)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(st, output.FormatJSON)
}
