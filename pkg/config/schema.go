package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const contribSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Contrib configuration file schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["contrib"],
  "properties": {
    "contrib": {
      "type": "object",
      "description": "All contrib configuration lives under 'contrib'",
      "additionalProperties": false,
      "required": ["repo", "commit"],
      "properties": {
        "repo": {"type": "string", "minLength": 1, "description": "path of the repository, relative to this file"},
        "commit": {"type": "string", "description": "revision (branch, tag, commit) whose history is plotted"},
        "orgmap": {"type": "string", "description": "optional json file mapping authors to organizations"},
        "cache": {"type": "string", "description": "directory holding cached blame data"},
        "parts": {
          "type": "object",
          "description": "named lists of path regexes for logical parts of the repo",
          "additionalProperties": false,
          "patternProperties": {
            "^\\w[\\w-]*$": {"type": "array", "items": {"type": "string"}}
          }
        },
        "merge": {
          "type": "array",
          "description": "groups of author names counted as the first name of the group",
          "items": {"type": "array", "minItems": 1, "items": {"type": "string"}}
        },
        "ignore": {
          "type": "array",
          "description": "regexes of source lines excluded from counts",
          "items": {"type": "string"}
        }
      }
    }
  }
}`

const orgMapSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Author to organization map",
  "type": "object",
  "additionalProperties": {"type": "string", "description": "name of organization, keyed by commit author name"}
}`

var schemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	out := make(map[string]*jsonschema.Schema)
	for name, src := range map[string]string{
		"contrib.schema.json": contribSchema,
		"orgmap.schema.json":  orgMapSchema,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(name, doc); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{"contrib.schema.json", "orgmap.schema.json"} {
		sch, err := c.Compile(name)
		if err != nil {
			return nil, err
		}
		out[name] = sch
	}
	return out, nil
})

// validate checks a JSON document against a named schema.
func validate(name string, data []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return all[name].Validate(doc)
}

// validateValue checks a decoded value (such as koanf's raw map) by
// round-tripping it through JSON.
func validateValue(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return validate(name, data)
}
