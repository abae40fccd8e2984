package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pdfqa/internal/config"
	"pdfqa/internal/server"
	"pdfqa/internal/tui"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pdfqa",
		Short:         "Ask questions about a PDF document",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts, args)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/pdfqa/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newTUICmd(opts),
		newAskCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [file.pdf]",
		Short: "Interactive terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts, args)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions, args []string) error {
	// The terminal belongs to the UI; logs go to the configured file or nowhere.
	a, err := setup(opts, false)
	if err != nil {
		return err
	}
	defer a.close()

	initial := ""
	if len(args) == 1 {
		initial = args[0]
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	m := tui.New(ctx, a.session, initial)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ask --file doc.pdf \"question\"",
		Short: "Load a PDF and answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.EqualFold(filepath.Ext(file), ".pdf") {
				return fmt.Errorf("--file must point to a .pdf file")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			a, err := setup(opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			stats, err := a.session.LoadDocument(ctx, filepath.Base(file), data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Document Preview")
			fmt.Fprintln(out, "Total documents loaded:", stats.Segments)
			fmt.Fprintln(out, "First document length:", stats.FirstSegmentLength)
			fmt.Fprintln(out, "Total chunks created:", stats.Chunks)
			if stats.Preview != "" {
				fmt.Fprintln(out, stats.Preview)
			}

			ans, err := a.session.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if ans.Empty() {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Rewritten Query:", ans.RewrittenQuery)
			fmt.Fprintln(out, "Answer:")
			fmt.Fprintln(out, ans.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "PDF document to load")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts, true)
			if err != nil {
				return err
			}
			defer a.close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			srv := server.New(a.session, server.Config{
				Addr:           a.cfg.Server.Addr,
				MaxUploadBytes: int64(a.cfg.Server.MaxUploadMB) << 20,
				CORSOrigins:    a.cfg.Server.CORSOrigins,
			}, a.log)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}
