package main

import (
	"context"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/camdenhq/rapport/internal/api"
	"github.com/camdenhq/rapport/internal/auth"
	"github.com/camdenhq/rapport/internal/brief"
	"github.com/camdenhq/rapport/internal/config"
	"github.com/camdenhq/rapport/internal/ingest"
	"github.com/camdenhq/rapport/internal/metrics"
	"github.com/camdenhq/rapport/internal/model"
	"github.com/camdenhq/rapport/internal/providers/gcal"
	"github.com/camdenhq/rapport/internal/providers/gmail"
	"github.com/camdenhq/rapport/internal/providers/outlook"
	"github.com/camdenhq/rapport/internal/scoring"
	"github.com/camdenhq/rapport/internal/store"
	"github.com/camdenhq/rapport/internal/sync"
	"github.com/camdenhq/rapport/internal/telemetry"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "rapport.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	verifier, err := auth.NewJWTVerifier(cfg.JWKSURL)
	if err != nil {
		log.Fatal(err)
	}

	endpoints := map[model.Provider]auth.Endpoint{
		model.ProviderGoogle: {
			URL:          cfg.GoogleTokenEndpoint,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		},
	}
	if cfg.MicrosoftClientID != "" {
		endpoints[model.ProviderMicrosoft] = auth.Endpoint{
			URL:          cfg.MicrosoftTokenEndpoint,
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
		}
	}
	tokens := auth.NewTokenProvider(st, endpoints, cfg.HTTPTimeout)

	var events sync.EventSink = telemetry.Noop{}
	if cfg.NATSURL != "" {
		publisher, err := telemetry.NewPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatal(err)
		}
		defer publisher.Close()
		events = publisher
	}

	recomputer := &scoring.Recomputer{Store: st}

	orchestrator := &sync.Orchestrator{
		Users:   st,
		Tokens:  tokens,
		Factory: providerFactory,
		Email: &ingest.EmailFetcher{
			Repo:          st,
			DaysBack:      cfg.SyncDaysBack,
			BatchSize:     cfg.SyncBatchSize,
			BatchInterval: cfg.SyncBatchInterval,
		},
		Calendar:   &ingest.CalendarFetcher{Repo: st},
		Recomputer: recomputer,
		Events:     events,
	}

	handler := &api.Handler{
		Sync:       sync.NewManager(orchestrator),
		Recomputer: recomputer,
		Briefs: &brief.Service{
			Store:     st,
			Generator: brief.NewGeminiClient(cfg.GeminiEndpoint, cfg.GeminiAPIKey),
		},
		Store:   st,
		Metrics: metrics.New(),
	}

	router := api.NewRouter(handler, api.AuthMiddleware(verifier))

	log.Printf("listening on :%s", cfg.Port)
	log.Fatal(router.Run(":" + cfg.Port))
}

// providerFactory builds the per-sync provider clients for a user's account
// type. Microsoft accounts are mail-only.
func providerFactory(ctx context.Context, provider model.Provider, accessToken string) (sync.Clients, error) {
	switch provider {
	case model.ProviderMicrosoft:
		mail, err := outlook.New(accessToken)
		if err != nil {
			return sync.Clients{}, err
		}
		return sync.Clients{Mail: mail}, nil
	default:
		mail, err := gmail.New(ctx, accessToken)
		if err != nil {
			return sync.Clients{}, err
		}
		cal, err := gcal.New(ctx, accessToken)
		if err != nil {
			return sync.Clients{}, err
		}
		return sync.Clients{Mail: mail, Calendar: cal}, nil
	}
}
