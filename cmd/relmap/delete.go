package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gorel/data/orm"
	"gorel/internal/cli"
)

var (
	deleteTx          bool
	deleteSkipCascade bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <alias> <id>",
	Short: "Delete a row and its dependents",
	Long: `Delete one row by primary key. Every association declared on the table runs
its cascade first: dependent HasOne/HasMany rows are removed, BelongsToMany
link rows are removed and parent rows are left untouched.`,
	Example: `  # Delete article 1 with its comments and tag links, atomically
  relmap delete Articles 1 --tx

  # Show the statements
  relmap delete Articles 1 --tx --trace`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		alias := args[0]
		return withSession(func(s *cli.Session) error {
			t, err := s.Table(alias)
			if err != nil {
				return err
			}
			key, err := cli.ParseKey(t, args[1])
			if err != nil {
				return cli.ConfigError("parsing id", err)
			}

			var deleted bool
			err = s.Transaction(context.Background(), deleteTx, func(ctx context.Context) error {
				entity, err := t.Get(ctx, key)
				if err != nil {
					return err
				}
				deleted, err = t.Delete(ctx, entity, orm.DeleteOptions{SkipCascade: deleteSkipCascade})
				return err
			})
			if err != nil {
				return cli.GeneralError("deleting "+alias+" "+args[1], err)
			}
			if deleted {
				fmt.Printf("deleted %s %s\n", alias, args[1])
			} else {
				fmt.Printf("%s %s was already gone\n", alias, args[1])
			}
			return nil
		})
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteTx, "tx", false, "run the cascade in a transaction")
	deleteCmd.Flags().BoolVar(&deleteSkipCascade, "skip-cascade", false, "delete only the row itself")
}
