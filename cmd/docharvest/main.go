// Command docharvest extracts text, headings, font styles, hyperlinks,
// images and tables from PDF, DOCX and PPTX files.
//
//	docharvest extract report.pdf --out output --db
//	docharvest serve
//	docharvest mcp
//	docharvest formats
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/docharvest/config"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "docharvest:", err)
		os.Exit(1)
	}
}

// app carries state shared by every subcommand once the root has run.
type app struct {
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "docharvest",
		Short:         "Extract text, links, images and tables from PDF, DOCX and PPTX",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file (ignored when missing)")

	root.AddCommand(
		a.extractCmd(),
		a.serveCmd(),
		a.mcpCmd(),
		a.formatsCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile, a.envFile)
	if err != nil {
		return err
	}
	lvl, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays clean for results and the MCP stdio stream.
	a.logger = slog.New(slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(a.logger)
	a.cfg = cfg
	return nil
}
