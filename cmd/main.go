package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"sp2any/src/api"
	"sp2any/src/bridge"
	"sp2any/src/config"
	"sp2any/src/fleet"
	"sp2any/src/metrics"
	"sp2any/src/middleware"
	"sp2any/src/secretstore"
	"sp2any/src/utils"
)

func main() {
	// Load .env file if it exists (non-fatal if missing).
	_ = godotenv.Load()
	utils.Configure()

	env, err := config.Load()
	if err != nil {
		utils.Log.WithError(err).Fatal("config: failed to load environment")
	}

	db, err := sql.Open("postgres", env.DatabaseURL)
	if err != nil {
		utils.Log.WithError(err).Fatal("failed to open database connection")
	}
	db.SetMaxOpenConns(env.DBMaxOpenConns)

	if err := secretstore.RunMigrations(db); err != nil {
		utils.Log.WithError(err).Fatal("failed to run database migrations")
	}

	appUserSecret := secretstore.ApplicationUserSecrets{Inner: env.ApplicationUserSecret}
	store := secretstore.New(db, appUserSecret)
	fleetManager := fleet.New(store)
	pairing := bridge.NewPairing(store)
	bridgeStream := bridge.NewStream(store, fleetManager)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), env.RequestTimeout)
	fleetManager.RestartAllOnStartup(startupCtx, appUserSecret)
	cancelStartup()

	cronCtx, cancelCron := context.WithCancel(context.Background())
	defer cancelCron()
	cronJob, err := metrics.StartUserConfigCronJob(cronCtx, store)
	if err != nil {
		utils.Log.WithError(err).Fatal("failed to start metrics cron job")
	}

	r := chi.NewRouter()
	middleware.Setup(r, env.BehindProxy)

	r.Get("/healthz", api.HealthHandler{}.ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// The bridge websocket and the public fronting page are each fetched
	// from contexts the JSON API's CORS policy never anticipated (a
	// desktop companion's embedded webview, an arbitrary visitor's
	// browser with no bearer token to send), so each gets its own
	// permissive rs/cors instance instead of reusing the API's.
	openOrigins := cors.New(cors.Options{AllowedOrigins: []string{"*"}})
	r.With(openOrigins.Handler).Handle("/bridge", bridgeStream)
	r.With(openOrigins.Handler).Get("/fronting/{websiteURLName}", api.FrontingHandler{Store: store, Fleet: fleetManager}.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS)

		accountHandler := api.AccountHandler{Store: store, JWTSecret: env.JWTApplicationSecret}
		r.Post("/v1/register", accountHandler.Register)
		r.Post("/v1/login", accountHandler.Login)

		vrchatHandler := api.VRChatAuthHandler{}
		r.Post("/v1/vrchat/login", vrchatHandler.Login)
		r.Post("/v1/vrchat/verify-2fa", vrchatHandler.VerifyTwoFactor)

		bridgePairingHandler := api.BridgePairingHandler{Pairing: pairing}
		r.Post("/v1/bridge/pair", bridgePairingHandler.CompletePairing)

		r.Group(func(r chi.Router) {
			r.Use(api.RequireAuth(env.JWTApplicationSecret))

			statusHandler := api.StatusHandler{Fleet: fleetManager}
			r.Get("/v1/users/me/status", statusHandler.ServeHTTP)

			configHandler := api.ConfigHandler{Store: store, Fleet: fleetManager}
			r.Get("/v1/users/me/config", configHandler.Get)
			r.Put("/v1/users/me/config", configHandler.Put)

			r.Post("/v1/users/me/bridge/pair", bridgePairingHandler.IssueCode)
		})
	})

	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.Log.WithField("addr", ":"+env.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Log.WithError(err).Fatal("http server error")
		}
	}()

	waitForShutdown(srv, fleetManager, cronJob, db)
}

func waitForShutdown(srv *http.Server, fleetManager *fleet.Manager, cronJob *cron.Cron, db *sql.DB) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	utils.Log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)

	fleetManager.StopAll()
	cronJob.Stop()
	_ = db.Close()
}
