package main

import (
	"path/filepath"

	"github.com/panbanda/contrib/pkg/config"
	"github.com/panbanda/contrib/pkg/orgs"
	"github.com/urfave/cli/v2"
)

func updateOrgMapCmd() *cli.Command {
	return &cli.Command{
		Name:  "update-org-map",
		Usage: "Add authors missing from the org map as \"unknown <email>\"",
		Description: `Every author of a non-merge commit who is absent from the org map, or
mapped to exactly "unknown", is added with an "unknown <email>" placeholder.
Edit the placeholders to assign organizations. When the configuration names
no org map, ` + config.DefaultOrgMapFile + ` is created in the working directory.`,
		Action: runUpdateOrgMap,
	}
}

func runUpdateOrgMap(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	env, err := openEnv(c)
	if err != nil {
		return err
	}
	cfg := env.Config

	file := cfg.OrgMapFile()
	if file == "" {
		file = config.DefaultOrgMapFile
	}
	m := cfg.OrgMap
	if m == nil {
		m = orgs.Map{}
	}

	added, err := orgs.Update(ctx, env.Client, m)
	if err != nil {
		return err
	}
	if added > 0 {
		if err := m.Save(file); err != nil {
			return err
		}
		env.Status("Added %d new authors to '%s'", added, file)
	} else {
		env.Status("No new authors.")
	}

	if cfg.OrgMapFile() == "" {
		env.Status("New orgmap file created in '%s'.", file)
		env.Status("Add it to '%s' like this:", c.String("file"))
		env.Printf("\n    contrib:\n        orgmap: %s\n\n", filepath.ToSlash(file))
	}
	return nil
}
