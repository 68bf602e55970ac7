package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/storetally/internal/app"
	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/sales/reconcile"
	"github.com/bobmcallan/storetally/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newCollectCmd(o *rootOptions) *cobra.Command {
	var typ string
	var stores []string
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect net sales from the portal for every store, then report",
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionType, err := models.ParseCollectionType(typ)
			if err != nil {
				return err
			}
			cfg, err := o.load(true)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, cancel := signalContext()
			defer cancel()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			logger.Info().
				Str("type", typ).
				Str("stores", joinStores(cfg.StoreNames())).
				Msg("starting collection")

			daily, err := a.RunCollection(ctx, collectionType, stores...)
			if daily.Date != "" {
				fmt.Fprintln(cmd.OutOrStdout(), daily.Message(time.Now().In(a.Location)).RenderText())
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(models.CollectionFinal), "Collection type: midday or final")
	cmd.Flags().StringArrayVar(&stores, "store", nil, "Collect only this store (repeatable)")
	return cmd
}

func newReportCmd(o *rootOptions) *cobra.Command {
	var typ string
	var asJSON, send bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the daily report from stored results",
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionType, err := models.ParseCollectionType(typ)
			if err != nil {
				return err
			}
			cfg, err := o.load(false)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, cancel := signalContext()
			defer cancel()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			var sendErr error
			report, err := a.Reports.DailyReport(ctx, collectionType, now)
			if err != nil {
				return err
			}
			if send {
				sendErr = a.Notifier.Send(ctx, report.Message(now.In(a.Location)))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, report.Message(now.In(a.Location)).RenderText())
			}
			return sendErr
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(models.CollectionFinal), "Collection type: midday or final")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&send, "send", false, "Also send the report to the configured channels")
	return cmd
}

func newParseCSVCmd(o *rootOptions) *cobra.Command {
	var ticketMode string
	cmd := &cobra.Command{
		Use:   "parse-csv <file|->",
		Short: "Reconcile net sales from a downloaded CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			rc := reconcile.New(reconcile.Options{})
			if cfg, err := o.load(false); err == nil {
				if ticketMode != "" {
					cfg.Reconcile.TicketAmountMode = ticketMode
				}
				rc = app.ReconcilerFromConfig(cfg.Reconcile)
			} else if ticketMode != "" {
				rc = reconcile.New(reconcile.Options{TicketMode: reconcile.TicketAmountMode(ticketMode)})
			}

			res, err := rc.NetSales(text)
			printReconcile(cmd.OutOrStdout(), args[0], res)
			if errors.Is(err, reconcile.ErrNoUsableColumn) {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&ticketMode, "ticket-mode", "", "Ticket amount mode: auto, sum or once")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func printReconcile(w io.Writer, name string, res reconcile.Result) {
	fmt.Fprintf(w, "file:         %s\n", name)
	fmt.Fprintf(w, "mode:         %s\n", res.Mode)
	if res.Column != "" {
		fmt.Fprintf(w, "column:       %s\n", res.Column)
	}
	if res.Mode == reconcile.ModeLineItem {
		fmt.Fprintf(w, "ticket mode:  %s (%d tickets)\n", res.TicketMode, res.Tickets)
	}
	fmt.Fprintf(w, "rows used:    %d\n", res.RowsUsed)
	fmt.Fprintf(w, "rows skipped: %d\n", res.RowsSkipped)
	fmt.Fprintf(w, "net sales:    %s\n", common.FormatMoney(res.Total))
}

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the status API and, when enabled, the daily collection schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(false)
			if err != nil {
				return err
			}
			if cfg.Schedule.Enabled {
				if issues := cfg.RequireStores(); len(issues) > 0 {
					printIssues(issues)
					return fmt.Errorf("schedule enabled without usable stores")
				}
			}
			logger := setupLogger(cfg)

			ctx, cancel := signalContext()
			defer cancel()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a)
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error { return srv.Run(gctx) })
			if cfg.Schedule.Enabled {
				g.Go(func() error { return a.RunScheduler(gctx) })
			}

			logger.Info().
				Str("url", "http://"+srv.Addr()).
				Bool("schedule", cfg.Schedule.Enabled).
				Msg("server ready")

			if err := g.Wait(); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storetally version %s\n", config.CurrentBuild())
		},
	}
}
