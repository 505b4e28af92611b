// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

// Package cases implements the "docket case" command group: case
// lifecycle management against the workspace registry.
package cases

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/docket-foundation/docket/cmd/docket/cli"
	"github.com/docket-foundation/docket/lib/registry"
)

// Command returns the "case" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "case",
		Summary: "Manage cases in the workspace registry",
		Description: `Manage cases.

A case is a sandboxed directory in the workspace plus its registry
entry. Creating a case scaffolds the standard directory layout
(.adk_state, .context, docs, drafts); cases with a client are nested
under a shared per-client directory. Cases are archived, never
physically deleted, so their audit trail survives.`,
		Subcommands: []*cli.Command{
			createCommand(),
			listCommand(),
			updateCommand(),
			archiveCommand(),
			clientsCommand(),
			tagsCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create a case for a client",
				Command:     "docket case create 'Smith v. Jones' --client smith --number 2026-CV-1042",
			},
			{
				Description: "List the active cases of one client",
				Command:     "docket case list --status active --client smith",
			},
			{
				Description: "Tag a case for later filtering",
				Command:     "docket case update 4f7c... --tag litigation --tag urgent",
			},
		},
	}
}

type createParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Number      string   `flag:"number" desc:"court or internal case number"`
	Client      string   `flag:"client" desc:"client name (nests the case under the client directory)"`
	Description string   `flag:"description" desc:"free-text description"`
	Status      string   `flag:"status" desc:"initial status" default:"active"`
	Tags        []string `flag:"tag" desc:"tag (repeatable)"`
}

func createCommand() *cli.Command {
	var params createParams
	return &cli.Command{
		Name:    "create",
		Summary: "Create a case and scaffold its directory",
		Usage:   "docket case create <name> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("case create", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one case name is required\n\nUsage: docket case create <name> [flags]")
			}
			cases, err := openRegistry(&params.ConfigFlag)
			if err != nil {
				return err
			}

			entry, err := cases.CreateCase(args[0], registry.CreateOptions{
				Number:      params.Number,
				Client:      params.Client,
				Description: params.Description,
				Status:      registry.CaseStatus(params.Status),
				Tags:        params.Tags,
			})
			if err != nil {
				if errors.Is(err, registry.ErrCaseExists) {
					return cli.Conflict("creating case: %w", err)
				}
				return cli.Internal("creating case: %w", err)
			}

			if done, err := params.EmitJSON(entry); done {
				return err
			}
			fmt.Printf("created case %s\n  id:   %s\n  path: %s\n", entry.Name, entry.ID, entry.ContextPath)
			return nil
		},
	}
}

type listParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Status string   `flag:"status" desc:"filter by status (active, pending, archived)"`
	Client string   `flag:"client" desc:"filter by client"`
	Tags   []string `flag:"tag" desc:"require tag (repeatable, all must match)"`
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List cases, most recently updated first",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("case list", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cases, err := openRegistry(&params.ConfigFlag)
			if err != nil {
				return err
			}

			entries, err := cases.ListCases(registry.Filter{
				Status: registry.CaseStatus(params.Status),
				Client: params.Client,
				Tags:   params.Tags,
			})
			if err != nil {
				return cli.Internal("listing cases: %w", err)
			}

			if done, err := params.EmitJSON(entries); done {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no cases")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCLIENT\tSTATUS\tUPDATED\tTAGS")
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					entry.ID,
					entry.Name,
					entry.Client,
					entry.Status,
					entry.UpdatedAt.Format("2006-01-02 15:04"),
					strings.Join(entry.Tags, ","),
				)
			}
			return tw.Flush()
		},
	}
}

type updateParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Name        string   `flag:"name" desc:"new case name"`
	Number      string   `flag:"number" desc:"new case number"`
	Client      string   `flag:"client" desc:"new client name"`
	Description string   `flag:"description" desc:"new description"`
	Status      string   `flag:"status" desc:"new status"`
	Tags        []string `flag:"tag" desc:"replacement tag set (repeatable)"`
}

func updateCommand() *cli.Command {
	var params updateParams
	var flagSet *pflag.FlagSet
	return &cli.Command{
		Name:    "update",
		Summary: "Update a case's mutable fields",
		Usage:   "docket case update <case-id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet = cli.FlagsFromParams("case update", &params)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one case id is required\n\nUsage: docket case update <case-id> [flags]")
			}
			cases, err := openRegistry(&params.ConfigFlag)
			if err != nil {
				return err
			}

			// Only flags the user actually set become patch fields, so
			// an omitted --name never clears the existing name.
			patch := registry.Patch{}
			flagSet.Visit(func(flag *pflag.Flag) {
				switch flag.Name {
				case "name":
					patch.Name = &params.Name
				case "number":
					patch.Number = &params.Number
				case "client":
					patch.Client = &params.Client
				case "description":
					patch.Description = &params.Description
				case "status":
					status := registry.CaseStatus(params.Status)
					patch.Status = &status
				case "tag":
					patch.Tags = params.Tags
				}
			})

			entry, err := cases.UpdateCase(args[0], patch)
			if err != nil {
				if errors.Is(err, registry.ErrNotFound) {
					return cli.NotFound("updating case: %w", err)
				}
				if errors.Is(err, registry.ErrImmutableField) {
					return cli.Validation("updating case: %w", err)
				}
				return cli.Internal("updating case: %w", err)
			}

			if done, err := params.EmitJSON(entry); done {
				return err
			}
			fmt.Printf("updated case %s (%s)\n", entry.Name, entry.ID)
			return nil
		},
	}
}

type archiveParams struct {
	cli.ConfigFlag
	cli.JSONOutput
}

func archiveCommand() *cli.Command {
	var params archiveParams
	return &cli.Command{
		Name:    "archive",
		Summary: "Archive a case (never deletes its directory)",
		Usage:   "docket case archive <case-id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("case archive", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("exactly one case id is required\n\nUsage: docket case archive <case-id>")
			}
			cases, err := openRegistry(&params.ConfigFlag)
			if err != nil {
				return err
			}

			entry, err := cases.ArchiveCase(args[0])
			if err != nil {
				if errors.Is(err, registry.ErrNotFound) {
					return cli.NotFound("archiving case: %w", err)
				}
				return cli.Internal("archiving case: %w", err)
			}

			if done, err := params.EmitJSON(entry); done {
				return err
			}
			fmt.Printf("archived case %s (%s)\n", entry.Name, entry.ID)
			return nil
		},
	}
}

type distinctParams struct {
	cli.ConfigFlag
	cli.JSONOutput
}

func clientsCommand() *cli.Command {
	var params distinctParams
	return &cli.Command{
		Name:    "clients",
		Summary: "List distinct client names",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("case clients", &params)
		},
		Run: func(args []string) error {
			return runDistinct(&params, args, func(cases *registry.Registry) ([]string, error) {
				return cases.ListClients()
			})
		},
	}
}

func tagsCommand() *cli.Command {
	var params distinctParams
	return &cli.Command{
		Name:    "tags",
		Summary: "List distinct tags",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("case tags", &params)
		},
		Run: func(args []string) error {
			return runDistinct(&params, args, func(cases *registry.Registry) ([]string, error) {
				return cases.ListTags()
			})
		},
	}
}

func runDistinct(params *distinctParams, args []string, list func(*registry.Registry) ([]string, error)) error {
	if len(args) != 0 {
		return cli.Validation("unexpected argument: %s", args[0])
	}
	cases, err := openRegistry(&params.ConfigFlag)
	if err != nil {
		return err
	}
	values, err := list(cases)
	if err != nil {
		return cli.Internal("listing: %w", err)
	}
	if done, err := params.EmitJSON(values); done {
		return err
	}
	for _, value := range values {
		fmt.Println(value)
	}
	return nil
}

// openRegistry loads config and opens the registry in the active
// workspace root.
func openRegistry(configFlag *cli.ConfigFlag) (*registry.Registry, error) {
	cfg, err := configFlag.LoadConfig()
	if err != nil {
		return nil, err
	}
	return cli.OpenRegistry(cfg)
}
