// Command storetally collects daily net sales from the retail portal, ranks the
// stores and reports the result.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configFiles []string
	envFile     string
	port        int
	host        string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "storetally",
		Short:         "Daily store sales collection and ranking",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringArrayVarP(&o.configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	cmd.PersistentFlags().StringVar(&o.envFile, "env-file", ".env", "Environment file with credentials")
	cmd.PersistentFlags().IntVarP(&o.port, "port", "p", 0, "Server port (overrides config)")
	cmd.PersistentFlags().StringVar(&o.host, "host", "", "Server host (overrides config)")

	cmd.AddCommand(
		newCollectCmd(o),
		newReportCmd(o),
		newParseCSVCmd(o),
		newServeCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// load reads .env, then the config files (auto-discovered when none were given),
// then flag overrides, and validates the result.
func (o *rootOptions) load(requireStores bool) (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}

	files := o.configFiles
	if len(files) == 0 {
		if found := config.Discover(); found != "" {
			files = []string{found}
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, err
	}
	config.ApplyFlagOverrides(cfg, o.port, o.host)

	issues := cfg.Validate()
	if requireStores {
		issues = append(issues, cfg.RequireStores()...)
	}
	if len(issues) > 0 {
		printIssues(issues)
		return nil, fmt.Errorf("invalid configuration (%d issues)", len(issues))
	}
	return cfg, nil
}

func printIssues(issues []string) {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Configuration error: mandatory fields are missing or invalid:")
	fmt.Fprintln(os.Stderr, "")
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "  - %s\n", issue)
	}
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Values can be set via storetally.toml, STORETALLY_* environment variables, a .env file or CLI flags.")
	fmt.Fprintln(os.Stderr, "")
}

// setupLogger creates an arbor logger based on config.
func setupLogger(cfg *config.Config) *common.Logger {
	return common.NewLoggerFromConfig(cfg.Logging)
}

func joinStores(names []string) string {
	return strings.Join(names, ", ")
}
