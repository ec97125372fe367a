package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gorel/data/orm"
	"gorel/internal/cli"
)

var querySpec cli.QuerySpec

func addQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&querySpec.Fields, "fields", nil, "columns of the main table")
	f.StringArrayVar(&querySpec.Where, "where", nil, "raw condition (repeatable, joined with AND)")
	f.StringSliceVar(&querySpec.Contain, "contain", nil, "association paths to load, e.g. Comments.Authors")
	f.StringSliceVar(&querySpec.Matching, "matching", nil, "associations that must match (INNER JOIN)")
	f.StringSliceVar(&querySpec.Order, "order", nil, `order, e.g. "id DESC"`)
	f.IntVar(&querySpec.Limit, "limit", 0, "maximum rows")
	f.IntVar(&querySpec.Offset, "offset", 0, "rows to skip")
}

var sqlCmd = &cobra.Command{
	Use:   "sql <alias>",
	Short: "Print the main query",
	Long: `Print the SQL of the main query. Joinable and matching associations appear
as JOIN clauses; associations loaded by a second query are not part of it.`,
	Example: `  relmap sql Articles --contain Authors --matching Tags --where "Articles.published = 1"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *cli.Session) error {
			t, err := s.Table(args[0])
			if err != nil {
				return err
			}
			sqlText, params, err := cli.BuildQuery(t, querySpec).Build(context.Background())
			if err != nil {
				return cli.GeneralError("building query", err)
			}
			fmt.Println(sqlText + ";")
			if len(params) > 0 {
				fmt.Printf("-- args: %v\n", params)
			}
			return nil
		})
	},
}

var fetchID string

var fetchCmd = &cobra.Command{
	Use:   "fetch <alias>",
	Short: "Run a query with eager loading",
	Example: `  # Articles with their author, comments and comment authors
  relmap fetch Articles --contain Authors --contain Comments.Authors

  # One article by primary key
  relmap fetch Articles --id 1 --contain Tags`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return withSession(func(s *cli.Session) error {
			t, err := s.Table(args[0])
			if err != nil {
				return err
			}
			q := cli.BuildQuery(t, querySpec)
			if fetchID != "" {
				key, err := cli.ParseKey(t, fetchID)
				if err != nil {
					return cli.ConfigError("parsing --id", err)
				}
				q.Where(keyConditions(t, key)...)
			}

			rows, err := q.Execute(ctx)
			if err != nil {
				return cli.GeneralError("fetching "+args[0], err)
			}
			out := make([]map[string]any, len(rows))
			for i, r := range rows {
				out[i] = orm.EntityToMap(r)
			}
			return printYAML(out)
		})
	},
}

func init() {
	addQueryFlags(sqlCmd)
	addQueryFlags(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchID, "id", "", "primary key (comma separated when composite)")
}

func keyConditions(t orm.ITable, key any) []orm.Expression {
	pk := t.PrimaryKey()
	values, ok := key.([]any)
	if !ok {
		values = []any{key}
	}
	conds := make([]orm.Expression, len(pk))
	for i, col := range pk {
		conds[i] = orm.Eq(t.Alias()+"."+col, values[i])
	}
	return conds
}
