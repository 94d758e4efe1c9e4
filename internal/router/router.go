package router

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	mem "github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/memory"
	pg "github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/adapters/storage/postgres"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/caregivers"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/middleware"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/notify"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/ports/auth"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/reminder"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Servicios ya construidos (wiring de producción en cmd/api). Si faltan,
	// el router arma su propio stack in-memory: suficiente para dev y tests.
	Medicines  *medicines.Service
	Caregivers *caregivers.Service
	Doses      *doses.Service
	Engine     *reminder.Engine

	// Opcional para el modo self-wired: si viene, usa Postgres.
	DB *sql.DB

	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	if opts.Medicines == nil || opts.Doses == nil || opts.Caregivers == nil || opts.Engine == nil {
		selfWire(&opts)
	}

	medicines.RegisterRoutes(r, opts.Medicines)
	caregivers.RegisterRoutes(r, opts.Caregivers)
	reminder.RegisterRoutes(r, opts.Engine, opts.Doses)

	return r
}

// selfWire arma repos, servicios y engine cuando no vienen inyectados. El
// engine queda sin arrancar: los timers se arman igual al crear medicinas,
// y el dispatch corre inline contra canales de log.
func selfWire(opts *Options) {
	log := opts.Logger
	if log == nil {
		log = logger.NewFromEnv()
	}

	var (
		medsRepo  medicines.Repository
		dosesRepo doses.Repository
		cgRepo    caregivers.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		medsRepo = pg.NewMedicinesRepo(db)
		dosesRepo = pg.NewDosesRepo(db)
		cgRepo = pg.NewCaregiversRepo(db)
	} else {
		medsRepo = mem.NewMedicinesRepo()
		dosesRepo = mem.NewDosesRepo()
		cgRepo = mem.NewCaregiversRepo()
	}

	medsSvc := medicines.NewService(medsRepo)
	dosesSvc := doses.NewService(dosesRepo)
	cgSvc := caregivers.NewService(cgRepo)

	dispatcher := notify.NewDispatcher(log,
		notify.NewVoiceChannel(notify.LogSynthesizer{Log: log}),
		notify.NewSystemChannel(notify.LogNotifier{Log: log}),
	)

	engine, err := reminder.NewEngine(log, reminder.Config{}, reminder.Deps{
		Store:      dosesRepo,
		Catalog:    medsRepo,
		Caregivers: cgRepo,
		Dispatcher: dispatcher,
		Adherence:  dosesSvc,
	})
	if err != nil {
		// Solo pasa con deps nil, y acá están todas.
		panic(err)
	}
	medsSvc.SetListener(engine)

	opts.Medicines = medsSvc
	opts.Caregivers = cgSvc
	opts.Doses = dosesSvc
	opts.Engine = engine
}
