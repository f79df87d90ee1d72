package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/contrib/internal/engine"
	"github.com/panbanda/contrib/pkg/config"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptFrontmatter is parsed from YAML frontmatter in prompt files.
type promptFrontmatter struct {
	Description string           `yaml:"description"`
	Arguments   []promptArgument `yaml:"arguments"`
}

type promptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// promptData is what prompt bodies are executed against.
type promptData struct {
	Config string
	Parts  []string
	OrgMap bool
	By     engine.By
}

var promptFuncs = template.FuncMap{"join": strings.Join}

// registerPrompts registers every embedded prompt. Bodies are templates
// rendered with the parts and org map of the requested configuration.
func (s *Server) registerPrompts() {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")

		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			continue
		}
		fm, body := parseFrontmatter(content)
		tmpl, err := template.New(name).Funcs(promptFuncs).Parse(body)
		if err != nil {
			continue
		}

		prompt := &mcp.Prompt{Name: name, Description: fm.Description}
		for _, a := range fm.Arguments {
			prompt.Arguments = append(prompt.Arguments, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.server.AddPrompt(prompt, s.promptHandler(fm.Description, tmpl))
	}
}

// parseFrontmatter splits YAML frontmatter from the body. Content without
// valid frontmatter is all body.
func parseFrontmatter(content []byte) (promptFrontmatter, string) {
	var fm promptFrontmatter
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return fm, string(content)
	}

	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return fm, string(content)
	}
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return promptFrontmatter{}, string(content)
	}
	return fm, strings.TrimPrefix(string(rest[end+5:]), "\n")
}

func (s *Server) promptData(configPath string) (*promptData, error) {
	if configPath == "" {
		configPath = config.DefaultFile
	}
	env, err := s.open(configPath)
	if err != nil {
		return nil, err
	}
	d := &promptData{
		Config: configPath,
		Parts:  env.Config.PartNames(),
		OrgMap: len(env.Config.OrgMap) > 0,
		By:     engine.ByAuthor,
	}
	if d.OrgMap {
		d.By = engine.ByOrganization
	}
	return d, nil
}

func (s *Server) promptHandler(description string, tmpl *template.Template) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		var configPath string
		if req != nil && req.Params != nil {
			configPath = req.Params.Arguments["config"]
		}
		data, err := s.promptData(configPath)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", tmpl.Name(), err)
		}

		var body strings.Builder
		if err := tmpl.Execute(&body, data); err != nil {
			return nil, err
		}
		return &mcp.GetPromptResult{
			Description: description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: body.String()},
				},
			},
		}, nil
	}
}
