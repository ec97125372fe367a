package main

import (
	"github.com/spf13/cobra"

	"gorel/internal/cli"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [alias...]",
	Short: "Show resolved associations",
	Long:  `Show every association with its resolved foreign keys, property, strategy and join table.`,
	Example: `  # All configured tables
  relmap inspect

  # A single table
  relmap inspect Articles`,
	RunE: func(cmd *cobra.Command, args []string) error {
		aliases := args
		if len(aliases) == 0 {
			for _, t := range cfg.Tables {
				aliases = append(aliases, t.Alias)
			}
			for _, a := range cfg.Associations {
				aliases = appendUnique(aliases, a.Source)
			}
		}

		return withSession(func(s *cli.Session) error {
			infos := make([]cli.TableInfo, 0, len(aliases))
			for _, alias := range aliases {
				t, err := s.Table(alias)
				if err != nil {
					return err
				}
				info, err := cli.Describe(t)
				if err != nil {
					return cli.ConfigError("resolving associations of "+alias, err)
				}
				infos = append(infos, info)
			}
			return printYAML(infos)
		})
	},
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}
