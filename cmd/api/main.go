package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpadp "coop-loans/internal/adapter/http"
	"coop-loans/internal/adapter/middleware"
	"coop-loans/internal/adapter/repository/mysql"
	"coop-loans/internal/config"
	"coop-loans/internal/infrastructure/cache"
	"coop-loans/internal/infrastructure/db"
	"coop-loans/internal/infrastructure/logger"
	"coop-loans/internal/infrastructure/notify"
	"coop-loans/internal/usecase/credit"
	"coop-loans/internal/usecase/eligibility"
	"coop-loans/internal/usecase/loan"
	"coop-loans/internal/usecase/member"
	"coop-loans/internal/usecase/rules"
	"coop-loans/internal/usecase/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), log)
	if err != nil {
		log.Fatal("mysql", zap.Error(err))
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	if err := db.SeedTemplates(ctx, gdb); err != nil {
		log.Fatal("seed templates", zap.Error(err))
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatal("mysql pool", zap.Error(err))
	}

	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	notifier := notify.Fanout{
		notify.NewLogDispatcher(log),
		notify.NewRedisDispatcher(rdb, cfg.NotifyChannel),
	}

	tx := mysql.NewGormUoW(gdb)
	repos := tx.Repos()

	provider := rules.NewProvider(mysql.NewSettingsRepository(gdb), cfg.Rules, cfg.RulesCacheTTL, log)
	if _, err := provider.Reload(ctx); err != nil {
		log.Warn("business config: serving defaults", zap.Error(err))
	}

	evaluator := eligibility.NewEvaluator(repos.Members,
		eligibility.Sources{Savings: repos.Savings, Loans: repos.Loans}, provider, log)
	router := workflow.NewRouter(tx, provider, notifier, log)
	scorer := credit.NewScorer(repos.Members, repos.Loans, provider)
	loans := loan.NewUsecase(tx, repos, evaluator, router, provider, notifier, log)
	members := member.NewUsecase(repos.Members, repos.Savings, repos.Loans, scorer, provider, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	health := httpadp.NewHandler(
		httpadp.Check{Name: "mysql", Ping: sqlDB.PingContext},
		httpadp.Check{Name: "redis", Ping: func(ctx context.Context) error { return cache.Ping(ctx, rdb) }},
	)
	httpadp.Register(e, httpadp.Handlers{
		Health:    health,
		Loans:     httpadp.NewLoanHandler(loans, log),
		Approvals: httpadp.NewApprovalHandler(router, log),
		Members:   httpadp.NewMemberHandler(members, scorer, log),
		Admin:     httpadp.NewAdminHandler(provider, log),
	}, middleware.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}
