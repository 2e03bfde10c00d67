// Package main is the entry point for the facet API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/attributeset"
	"facet/internal/domain/locale"
	"facet/internal/infrastructure/cache"
	v1 "facet/internal/infrastructure/http/v1"
	"facet/internal/infrastructure/rules"
	"facet/internal/infrastructure/storage/postgres"
	"facet/internal/infrastructure/storage/postgres/entity_repo"
	"facet/internal/infrastructure/storage/postgres/field_repo"
	"facet/internal/infrastructure/storage/postgres/schema_repo"
	"facet/pkg/logger"
)

// schemaLoader bridges the schema repositories into the cache.
type schemaLoader struct {
	attrs *schema_repo.AttributeRepo
	sets  *schema_repo.AttributeSetRepo
}

func (l schemaLoader) LoadAttributes(ctx context.Context) ([]*attribute.Attribute, error) {
	return l.attrs.LoadAttributes(ctx)
}

func (l schemaLoader) LoadAttributeSets(ctx context.Context) ([]*attributeset.AttributeSet, error) {
	return l.sets.LoadAttributeSets(ctx)
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting facet server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	invalidator := cache.NewPgInvalidator(txManager)

	// --- Collaborators ---
	celEngine, err := rules.NewCELEngine()
	if err != nil {
		log.Fatalw("failed to initialize rules engine", "error", err)
	}

	locales := locale.NewStaticResolverFromCodes(
		splitCodes(getEnv("LOCALES", "en_US")))

	// --- Field type registry ---
	// The relation validators probe relation targets through the entity
	// repository, which is constructed after the registry. The closure
	// binds late.
	var entities *entity_repo.Repo
	registry := field_repo.NewDefaultRegistry(field_repo.Deps{
		TxManager: txManager,
		Rules:     celEngine,
		LookupEntity: func(ctx context.Context, entityID id.ID) (string, bool, error) {
			if entities == nil {
				return "", false, nil
			}
			return entities.LookupType(ctx, entityID)
		},
	})

	// --- Repositories ---
	attrRepo := schema_repo.NewAttributeRepo(txManager, registry, invalidator)
	entityTypeRepo := schema_repo.NewEntityTypeRepo(txManager, registry, invalidator)
	setRepo := schema_repo.NewAttributeSetRepo(txManager, registry, attrRepo, entityTypeRepo, invalidator)

	// --- Schema cache ---
	// The entity repository serves code lookups on the list path from
	// this cache, falling back to the repositories on a miss.
	schemaCache := cache.NewSchemaCache(pool.Unwrap(), schemaLoader{attrs: attrRepo, sets: setRepo})
	if err := schemaCache.Start(ctx); err != nil {
		log.Fatalw("failed to start schema cache", "error", err)
	}
	defer schemaCache.Stop()

	entities = entity_repo.NewRepo(txManager, registry, attrRepo, setRepo, entityTypeRepo, locales, schemaCache)

	// --- Audit ---
	auditLog, err := postgres.NewAuditLog(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit log", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:          pool.Unwrap(),
		Logger:        log,
		Attributes:    attrRepo,
		AttributeSets: setRepo,
		EntityTypes:   entityTypeRepo,
		Entities:      entities,
		Audit:         auditLog,
	})

	// --- HTTP server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}

func splitCodes(raw string) []string {
	var codes []string
	for _, code := range strings.Split(raw, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
