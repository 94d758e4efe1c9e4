package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/memory"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/postgres"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/sqlite"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/conf"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/caregivers"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/notify"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/reminder"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/router"
)

func main() {
	// .env es opcional; en producción las vars vienen del entorno.
	_ = godotenv.Load()

	cfg := conf.LoadFromEnv()
	logg := logger.NewFromEnv()

	medsRepo, dosesRepo, cgRepo := openStorage(cfg, logg)

	medsSvc := medicines.NewService(medsRepo)
	dosesSvc := doses.NewService(dosesRepo)
	cgSvc := caregivers.NewService(cgRepo)

	dispatcher := notify.NewDispatcher(logg, buildChannels(cfg, logg)...)

	templates, err := reminder.NewTemplateSet(cfg.Templates)
	if err != nil {
		log.Fatalf("message templates: %v", err)
	}

	deps := reminder.Deps{
		Store:      dosesRepo,
		Catalog:    medsRepo,
		Caregivers: cgRepo,
		Dispatcher: dispatcher,
		Adherence:  dosesSvc,
		Templates:  templates,
	}
	if cfg.Contact.Enabled() {
		deps.Users = reminder.StaticContact{
			Phone: cfg.Contact.Phone,
			Email: cfg.Contact.Email,
		}
	}

	engine, err := reminder.NewEngine(logg, cfg.ToEngineConfig(), deps)
	if err != nil {
		log.Fatalf("reminder engine: %v", err)
	}
	medsSvc.SetListener(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("engine start: %v", err)
	}
	defer engine.Stop()

	r := router.NewRouter(router.Options{
		AuthVerifier: nil, // sin verifier para modo dev
		Medicines:    medsSvc,
		Caregivers:   cgSvc,
		Doses:        dosesSvc,
		Engine:       engine,
		Logger:       logg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server shutdown", map[string]any{"err": err.Error()})
	}
}

func openStorage(cfg *conf.Config, logg logger.Logger) (medicines.Repository, doses.Repository, caregivers.Repository) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Open(cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		logg.Info("using postgres storage", nil)
		return postgres.NewMedicinesRepo(db), postgres.NewDosesRepo(db), postgres.NewCaregiversRepo(db)

	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		logg.Info("using sqlite storage", map[string]any{"path": cfg.Storage.SQLitePath})
		return sqlite.NewMedicinesRepo(db), sqlite.NewDosesRepo(db), sqlite.NewCaregiversRepo(db)

	default:
		logg.Warn("using in-memory storage, data will not survive restarts", nil)
		return memory.NewMedicinesRepo(), memory.NewDosesRepo(), memory.NewCaregiversRepo()
	}
}

// buildChannels arma los canales de notificación disponibles. Voz y sistema
// siempre están (con defaults de log); SMS y email solo con credenciales.
func buildChannels(cfg *conf.Config, logg logger.Logger) []notify.Channel {
	channels := []notify.Channel{
		notify.NewVoiceChannel(notify.LogSynthesizer{Log: logg}),
		notify.NewSystemChannel(notify.LogNotifier{Log: logg}),
	}

	if cfg.Twilio.Enabled() {
		ch, err := notify.NewTwilioChannel(notify.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
		})
		if err != nil {
			log.Fatalf("twilio: %v", err)
		}
		channels = append(channels, ch)
		logg.Info("sms channel enabled", nil)
	}

	if cfg.SendGrid.Enabled() {
		ch, err := notify.NewSendGridChannel(notify.SendGridConfig{
			APIKey:    cfg.SendGrid.APIKey,
			FromEmail: cfg.SendGrid.FromEmail,
		})
		if err != nil {
			log.Fatalf("sendgrid: %v", err)
		}
		channels = append(channels, ch)
		logg.Info("email channel enabled", nil)
	}

	return channels
}
