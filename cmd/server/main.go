package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/studiob6/billing-backend/internal/config"
	"github.com/studiob6/billing-backend/internal/db"
	"github.com/studiob6/billing-backend/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	conn, err := db.ConnectAndMigrate()
	if err != nil {
		logrus.WithError(err).Fatal("database setup failed")
	}

	app := server.New(conn, cfg)

	// Overdue invoices are swept on a schedule so statuses flip without
	// waiting for anyone to open the invoice list.
	var sched *cron.Cron
	if cfg.SweepSchedule != "" {
		sched = cron.New()
		_, err := sched.AddFunc(cfg.SweepSchedule, func() {
			n, err := app.Invoices.SweepOverdue(time.Now())
			if err != nil {
				logrus.WithError(err).Error("overdue sweep failed")
				return
			}
			if n > 0 {
				logrus.WithField("count", n).Info("invoices marked overdue")
			}
		})
		if err != nil {
			logrus.WithError(err).Fatalf("invalid SWEEP_SCHEDULE %q", cfg.SweepSchedule)
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutdown signal received")

	if sched != nil {
		<-sched.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
	logrus.Info("server stopped")
}
