package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sdep-gateway/internal/activity"
	activityhandler "sdep-gateway/internal/activity/handler"
	"sdep-gateway/internal/area"
	areahandler "sdep-gateway/internal/area/handler"
	"sdep-gateway/internal/audit"
	"sdep-gateway/internal/jwttoken"
	"sdep-gateway/internal/party"
	"sdep-gateway/internal/platform/config"
	"sdep-gateway/internal/platform/database"
	"sdep-gateway/internal/platform/httpserver"
	"sdep-gateway/internal/platform/logger"
	"sdep-gateway/internal/platform/metrics"
	httptransport "sdep-gateway/internal/transport/http"
	"sdep-gateway/pkg/tx"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat)

	db, dialect, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Init(db, dialect); err != nil {
		log.Error("failed to initialise schema", "error", err.Error())
		os.Exit(1)
	}

	auditor := audit.Publisher(audit.Noop{})
	if len(cfg.AuditBrokers) > 0 {
		kafkaAuditor, err := audit.NewKafkaPublisher(cfg.AuditBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect audit publisher", "error", err.Error())
			os.Exit(1)
		}
		auditor = kafkaAuditor
	}
	defer auditor.Close()

	m := metrics.New()
	uow := tx.NewUnitOfWork(db)

	authorityStore := party.NewAuthorityStore(db, dialect)
	platformStore := party.NewPlatformStore(db, dialect)
	areaStore := area.NewStore(db, dialect)
	activityStore := activity.NewStore(db, dialect)

	areaService := area.NewService(areaStore, authorityStore, uow, log, m, auditor)
	activityService := activity.NewService(activityStore, areaStore, platformStore, authorityStore, uow, log, m, auditor)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := httptransport.NewRouter(httptransport.Handlers{
		Areas:      areahandler.New(areaService, log, jwtService),
		Activities: activityhandler.New(activityService, log, jwtService),
	}, db, jwtService, m, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting sdep-gateway", "addr", cfg.Addr, "db_driver", cfg.DBDriver)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
