package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"gorel/internal/cli"
	"gorel/logging"
)

var (
	cfg        *cli.Config
	configPath string
	logger     logging.Logger

	cfgFile string
	verbose int
	quiet   bool
	trace   bool
)

var rootCmd = &cobra.Command{
	Use:   "relmap",
	Short: "Inspect and run table associations",
	Long: `relmap - association resolution and eager loading for SQL tables

relmap reads table and association declarations from relmap.yaml, resolves
foreign keys and join tables by convention, and runs queries with eager
loading or cascading deletes against the configured database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		logger = cli.NewLogger(os.Stderr, cfg.Log.Level, verbose, quiet)
		logging.SetLogger(logger)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./relmap.yaml)")
	pf.CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	pf.BoolVar(&trace, "trace", false, "print every executed SQL statement to stderr")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute 运行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// withSession 打开会话执行 fn，结束后按需输出语句记录并关闭连接
func withSession(fn func(s *cli.Session) error) error {
	s, err := cli.Open(cfg, cli.WithTrace(trace), cli.WithSessionLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	defer s.WriteTrace(os.Stderr)
	return fn(s)
}

func printYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
