package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"yaml", FormatYAML},
		{"yml", FormatYAML},
		{"toon", FormatTOON},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseFormat(tt.input)
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFileFormatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "stats.json")

	f := NewFileFormatter(FormatJSON, path)
	if err := f.Output(map[string]string{"name": "<Alice>"}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file should not exist before Close")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "{\n  \"name\": \"<Alice>\"\n}\n" {
		t.Errorf("file = %q", data)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestFileFormatterInvalidPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFileFormatter(FormatText, filepath.Join(blocker, "out.txt"))
	if err := f.Output(NewTable("", []string{"A"}, [][]string{{"1"}}, nil, nil)); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err == nil {
		t.Error("Close() should fail when the parent is a file")
	}
}

func TestWriterFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatMarkdown, &buf, true)
	if f.Writer() != &buf {
		t.Error("Writer() should return the configured writer")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestTableRenderText(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  []string
	}{
		{
			name: "simple_table",
			table: NewTable(
				"core by author",
				[]string{"Name", "Lines"},
				[][]string{{"Alice", "1,200"}, {"Bob", "30"}},
				nil,
				nil,
			),
			want: []string{"core by author", "NAME", "LINES", "Alice", "1,200"},
		},
		{
			name: "table_with_footer",
			table: NewTable(
				"Summary",
				[]string{"Name", "Lines"},
				[][]string{{"Alice", "10"}},
				[]string{"Total", "10"},
				nil,
			),
			want: []string{"Summary", "Alice", "Total"},
		},
		{
			name:  "empty_table",
			table: NewTable("Empty", []string{"Col1", "Col2"}, [][]string{}, nil, nil),
			want:  []string{"Empty", "COL 1", "COL 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.table.RenderText(&buf, false); err != nil {
				t.Fatalf("RenderText() error: %v", err)
			}

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("RenderText() missing %q in output:\n%s", want, output)
				}
			}
		})
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Results", []string{"Name", "Lines"}, [][]string{{"foo", "3"}}, []string{"Total", "3"}, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"## Results", "| Name | Lines |", "| --- | --- |", "| foo | 3 |", "| Total | 3 |"} {
		if !strings.Contains(output, want) {
			t.Errorf("RenderMarkdown() missing %q in output:\n%s", want, output)
		}
	}
}

func TestTableRenderData(t *testing.T) {
	t.Run("with_data_field", func(t *testing.T) {
		table := NewTable("Title", []string{"H1"}, [][]string{{"R1"}}, nil, map[string]any{"custom": "data"})
		m, ok := table.RenderData().(map[string]any)
		if !ok || m["custom"] != "data" {
			t.Errorf("RenderData() = %v, want the Data field", table.RenderData())
		}
	})

	t.Run("without_data_field", func(t *testing.T) {
		table := NewTable("Test", []string{"Name", "Value"}, [][]string{{"foo", "100"}, {"bar", "200"}}, nil, nil)
		rows, ok := table.RenderData().([]map[string]string)
		if !ok {
			t.Fatalf("RenderData() should return []map[string]string, got %T", table.RenderData())
		}
		if len(rows) != 2 {
			t.Errorf("RenderData() returned %d rows, want 2", len(rows))
		}
		if rows[0]["Name"] != "foo" || rows[0]["Value"] != "100" {
			t.Errorf("RenderData() row 0 = %v, want {Name: foo, Value: 100}", rows[0])
		}
	})

	t.Run("mismatched_columns", func(t *testing.T) {
		table := NewTable("Test", []string{"A", "B", "C"}, [][]string{{"1", "2"}}, nil, nil)
		rows := table.RenderData().([]map[string]string)
		if len(rows[0]) != 2 {
			t.Errorf("RenderData() should handle missing columns, got %v", rows[0])
		}
	})
}

func TestReportRender(t *testing.T) {
	report := &Report{
		Title:   "Contributions",
		Content: "3 commits",
		Sections: []Renderable{
			NewTable("core by author", []string{"Name", "Lines"}, [][]string{{"Alice", "100"}}, nil, nil),
		},
	}

	var text bytes.Buffer
	if err := report.RenderText(&text, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	for _, w := range []string{"Contributions", "3 commits", "core by author", "NAME", "Alice", "100"} {
		if !strings.Contains(text.String(), w) {
			t.Errorf("RenderText() missing %q in output:\n%s", w, text.String())
		}
	}

	var md bytes.Buffer
	if err := report.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	for _, w := range []string{"# Contributions", "3 commits", "## core by author", "| Alice | 100 |"} {
		if !strings.Contains(md.String(), w) {
			t.Errorf("RenderMarkdown() missing %q in output:\n%s", w, md.String())
		}
	}

	m, ok := report.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() should return map[string]any, got %T", report.RenderData())
	}
	if m["title"] != "Contributions" {
		t.Errorf("title = %v, want Contributions", m["title"])
	}
}

func TestFormatterOutputStructured(t *testing.T) {
	data := map[string]any{"name": "test", "value": 123}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewWriterFormatter(FormatJSON, &buf, false).Output(data); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if got["name"] != "test" || got["value"].(float64) != 123 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewWriterFormatter(FormatYAML, &buf, false).Output(data); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		var got map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if got["name"] != "test" || got["value"] != 123 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("toon", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewWriterFormatter(FormatTOON, &buf, false).Output(data); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		if !strings.Contains(buf.String(), "name") || !strings.Contains(buf.String(), "test") {
			t.Errorf("toon output missing fields:\n%s", buf.String())
		}
	})

	t.Run("markdown_raw", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewWriterFormatter(FormatMarkdown, &buf, false).Output(data); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		if !strings.HasPrefix(buf.String(), "```json\n") {
			t.Errorf("markdown output should be a json code block:\n%s", buf.String())
		}
	})
}

func TestFormatterOutputRenderableStructured(t *testing.T) {
	table := NewTable("T", []string{"A"}, [][]string{{"1"}}, nil, map[string]int{"a": 1})

	var buf bytes.Buffer
	if err := NewWriterFormatter(FormatJSON, &buf, false).Output(table); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "{\n  \"a\": 1\n}" {
		t.Errorf("Output() = %q", buf.String())
	}
}
