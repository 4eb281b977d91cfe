package router

import (
	"database/sql"
	"net/http"

	_ "care-connect/docs"
	"care-connect/internal/adapters/notify/pushover"
	"care-connect/internal/adapters/notify/webhook"
	mem "care-connect/internal/adapters/storage/memory"
	pg "care-connect/internal/adapters/storage/postgres"
	"care-connect/internal/domain/adherence"
	"care-connect/internal/domain/doses"
	"care-connect/internal/domain/links"
	"care-connect/internal/domain/medications"
	"care-connect/internal/domain/notifications"
	"care-connect/internal/domain/users"
	"care-connect/internal/middleware"
	"care-connect/internal/platform/clock"
	"care-connect/internal/platform/logger"
	"care-connect/internal/platform/metrics"
	"care-connect/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
	// Opcional: bandeja de notificaciones separada (badger).
	Notifications notifications.Repository

	Clock   clock.Clock
	Log     logger.Logger
	Metrics *metrics.Metrics

	GenerateAheadDays int
	AdherenceDays     int
	Thresholds        adherence.Thresholds

	// Canales externos; vacíos = solo bandeja interna.
	PushoverToken string
	Webhook       webhook.Config

	Swagger bool
}

// App expone el handler y los servicios que también usan el scheduler y la CLI.
type App struct {
	Handler   http.Handler
	Generator *doses.Generator
	Lifecycle *doses.Lifecycle
}

func New(opts Options) (*App, error) {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New(nil)
	}
	if opts.Thresholds == (adherence.Thresholds{}) {
		opts.Thresholds = adherence.DefaultThresholds()
	}

	var (
		userRepo  users.Repository
		linkRepo  links.Repository
		medRepo   medications.Repository
		doseRepo  doses.Repository
		notifRepo notifications.Repository
	)
	if opts.DB != nil {
		userRepo = pg.NewUsersRepo(opts.DB)
		linkRepo = pg.NewLinksRepo(opts.DB)
		medRepo = pg.NewMedicationsRepo(opts.DB, opts.Clock.Location())
		doseRepo = pg.NewDosesRepo(opts.DB)
		notifRepo = pg.NewNotificationsRepo(opts.DB)
	} else {
		userRepo = mem.NewUsersRepo()
		linkRepo = mem.NewLinksRepo()
		medRepo = mem.NewMedicationsRepo()
		doseRepo = mem.NewDosesRepo()
		notifRepo = mem.NewNotificationsRepo()
	}
	if opts.Notifications != nil {
		notifRepo = opts.Notifications
	}

	// Services por módulo
	usersSvc := users.NewService(userRepo)

	senders, err := buildSenders(opts, usersSvc)
	if err != nil {
		return nil, err
	}
	notifSvc := notifications.NewService(notifRepo, opts.Log, opts.Metrics, senders...)
	linksSvc := links.NewService(linkRepo, notifSvc, opts.Log)
	medsSvc := medications.NewService(medRepo, linksSvc, notifSvc, opts.Clock, opts.Log)
	generator := doses.NewGenerator(doseRepo, medsSvc, opts.Clock, opts.GenerateAheadDays, opts.Log, opts.Metrics)
	lifecycle := doses.NewLifecycle(doseRepo, medsSvc, opts.Clock, opts.Log, opts.Metrics)
	adherenceSvc := adherence.NewService(adherence.Deps{
		Patients:    usersSvc,
		Doses:       doseRepo,
		Medications: medsSvc,
		Caretakers:  linksSvc,
		Notifier:    notifSvc,
		Clock:       opts.Clock,
		Thresholds:  opts.Thresholds,
		Log:         opts.Log,
		Metrics:     opts.Metrics,
	})

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(opts.Log))
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}
	if opts.Swagger {
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}

	// Rutas por módulo
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		users.RegisterRoutes(r, usersSvc, linksSvc)
		links.RegisterRoutes(r, linksSvc, usersSvc)
		medications.RegisterRoutes(r, medications.Deps{
			Service:   medsSvc,
			Users:     usersSvc,
			Access:    linksSvc,
			Scheduler: generator,
			Log:       opts.Log,
		})
		doses.RegisterRoutes(r, lifecycle, linksSvc)
		adherence.RegisterRoutes(r, adherenceSvc, linksSvc, opts.AdherenceDays)
		notifications.RegisterRoutes(r, notifSvc)
	})

	return &App{Handler: r, Generator: generator, Lifecycle: lifecycle}, nil
}

// NewRouter es New para quien solo necesita el handler; con opciones inválidas
// (p.ej. URL de webhook mal formada) entra en pánico.
func NewRouter(opts Options) http.Handler {
	app, err := New(opts)
	if err != nil {
		panic(err)
	}
	return app.Handler
}

func buildSenders(opts Options, directory *users.Service) ([]notifications.Sender, error) {
	var out []notifications.Sender
	if opts.PushoverToken != "" {
		s, err := pushover.New(opts.PushoverToken, directory)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if opts.Webhook.URL != "" {
		s, err := webhook.New(opts.Webhook, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
