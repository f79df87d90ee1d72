package main

import (
	"encoding/json"

	"github.com/urfave/cli/v2"
)

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// serverManifest is the MCP registry server.json document.
type serverManifest struct {
	Schema      string            `json:"$schema"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Repository  *manifestRepo     `json:"repository,omitempty"`
	Packages    []manifestPackage `json:"packages,omitempty"`
}

type manifestRepo struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

type manifestPackage struct {
	RegistryType         string             `json:"registryType"`
	Identifier           string             `json:"identifier"`
	PackageArguments     []manifestArgument `json:"packageArguments,omitempty"`
	EnvironmentVariables []manifestEnvVar   `json:"environmentVariables,omitempty"`
	Transport            manifestTransport  `json:"transport"`
}

type manifestArgument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type manifestEnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type manifestTransport struct {
	Type string `json:"type"`
}

// buildManifest describes app as an MCP server run with its mcp command.
// The environment variables are those the app's global flags read, so
// clients can tune jobs, sampling and the config file path.
func buildManifest(app *cli.App) ([]byte, error) {
	v := app.Version
	if v == "" || v == "dev" {
		v = "0.0.0"
	}

	var envs []manifestEnvVar
	for _, f := range app.Flags {
		var names []string
		var usage string
		switch f := f.(type) {
		case *cli.StringFlag:
			names, usage = f.EnvVars, f.Usage
		case *cli.IntFlag:
			names, usage = f.EnvVars, f.Usage
		case *cli.BoolFlag:
			names, usage = f.EnvVars, f.Usage
		}
		for _, name := range names {
			envs = append(envs, manifestEnvVar{Name: name, Description: usage})
		}
	}

	m := serverManifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/" + app.Name,
		Description: app.Usage,
		Version:     v,
		Repository: &manifestRepo{
			URL:    "https://github.com/panbanda/" + app.Name,
			Source: "github",
		},
		Packages: []manifestPackage{
			{
				RegistryType:         "oci",
				Identifier:           "ghcr.io/panbanda/" + app.Name + ":" + v,
				PackageArguments:     []manifestArgument{{Type: "positional", Value: "mcp"}},
				EnvironmentVariables: envs,
				Transport:            manifestTransport{Type: "stdio"},
			},
		},
	}
	return json.MarshalIndent(m, "", "  ")
}
