package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/config"
	"github.com/studiob6/billing-backend/internal/db"
	"github.com/studiob6/billing-backend/internal/models"
	"github.com/studiob6/billing-backend/internal/services"
)

// billingctl is the operational companion to the API server: one-off batch
// jobs that would be awkward to trigger over HTTP.

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Administrative commands for the billing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(sweepCmd(), renumberCmd(), seedCmd(), activateClientsCmd())

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func connect() (*gorm.DB, config.Config, error) {
	cfg := config.Load()
	conn, err := db.ConnectAndMigrate()
	if err != nil {
		return nil, cfg, err
	}
	return conn, cfg, nil
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Flip past-due unpaid invoices to overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, err := connect()
			if err != nil {
				return err
			}
			svc := services.NewInvoiceService(conn, services.Sequencer{
				Prefix:       cfg.InvoicePrefix,
				PeriodFormat: cfg.InvoicePeriodFormat,
				Floor:        cfg.InvoiceNumberFloor,
			})
			n, err := svc.SweepOverdue(time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("%d invoice(s) marked overdue\n", n)
			return nil
		},
	}
}

func renumberCmd() *cobra.Command {
	var (
		prefix    string
		startFrom int
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "renumber-invoices",
		Short: "Migrate invoices without the configured prefix to the current scheme",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, cfg, err := connect()
			if err != nil {
				return err
			}
			if prefix == "" {
				prefix = cfg.InvoicePrefix
			}
			svc := services.NewInvoiceService(conn, services.Sequencer{
				Prefix:       cfg.InvoicePrefix,
				PeriodFormat: cfg.InvoicePeriodFormat,
				Floor:        cfg.InvoiceNumberFloor,
			})
			changes, err := svc.Renumber(prefix, startFrom, dryRun)
			if err != nil {
				return err
			}
			for _, c := range changes {
				fmt.Printf("%s -> %s\n", c.Old, c.New)
			}
			if dryRun {
				fmt.Printf("dry run: %d invoice(s) would be renumbered\n", len(changes))
			} else {
				fmt.Printf("%d invoice(s) renumbered\n", len(changes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "target prefix (defaults to INVOICE_PREFIX)")
	cmd.Flags().IntVar(&startFrom, "start-from", 0, "first number to assign instead of continuing the sequence")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without writing")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-tools",
		Short: "Insert or refresh the AI tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, err := connect()
			if err != nil {
				return err
			}
			if err := db.SeedTools(conn); err != nil {
				return err
			}
			fmt.Println("tool catalog seeded")
			return nil
		},
	}
}

func activateClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate-clients",
		Short: "Reactivate every deactivated client",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, err := connect()
			if err != nil {
				return err
			}
			res := conn.Model(&models.Client{}).
				Where("is_active = ?", false).
				Update("is_active", true)
			if res.Error != nil {
				return res.Error
			}
			fmt.Printf("%d client(s) reactivated\n", res.RowsAffected)
			return nil
		},
	}
}
