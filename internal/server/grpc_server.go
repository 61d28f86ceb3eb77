// internal/server/grpc_server.go
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/SinaHo/fyra-signin-backend/api/v1/signin"
	"github.com/SinaHo/fyra-signin-backend/internal/config"
	"github.com/SinaHo/fyra-signin-backend/internal/handler"
	"github.com/SinaHo/fyra-signin-backend/internal/mailer"
	"github.com/SinaHo/fyra-signin-backend/internal/middleware"
	"github.com/SinaHo/fyra-signin-backend/internal/pending"
	"github.com/SinaHo/fyra-signin-backend/internal/provider/local"
	"github.com/SinaHo/fyra-signin-backend/internal/repository"
	"github.com/SinaHo/fyra-signin-backend/internal/service"
	"github.com/SinaHo/fyra-signin-backend/internal/token"

	_ "github.com/lib/pq"
)

// Components are the storage and delivery backends the SignIn service runs on.
type Components struct {
	Accounts repository.AccountRepository
	Users    repository.UserRepository
	Pending  pending.Store
	Ledger   local.Ledger
	Mailer   mailer.Sender
}

type AppServer struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	rdb    *redis.Client
	GRPC   *grpc.Server
}

func NewAppServer(cfg *config.Config, logger *zap.Logger) (*AppServer, error) {
	sugar := logger.Sugar()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// PostgreSQL (via sqlx)
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Postgres.DSN())
	if err != nil {
		sugar.Errorf("failed to connect to postgres: %v", err)
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := repository.Migrate(ctx, db.DB); err != nil {
		db.Close()
		sugar.Errorf("failed to migrate postgres: %v", err)
		return nil, err
	}

	// Redis
	rd := cfg.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rd.Addr,
		Password: rd.Password,
		DB:       rd.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		sugar.Errorf("failed to ping redis: %v", err)
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	mail, err := mailer.FromConfig(cfg.Mail, sugar.Named("mailer"))
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, err
	}

	grpcServer := NewGRPCServer(cfg, logger, Components{
		Accounts: repository.NewAccountRepository(db),
		Users:    repository.NewUserRepository(db),
		Pending:  pending.NewRedisStore(rdb, rd.PendingPrefix, rd.PendingTTL),
		Ledger:   local.NewRedisLedger(rdb, rd.LedgerPrefix),
		Mailer:   mail,
	})

	sugar.Infof("AppServer initialized successfully")
	return &AppServer{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		GRPC:   grpcServer,
	}, nil
}

// NewGRPCServer wires provider, service and handler on top of c and
// registers the SignIn service.
func NewGRPCServer(cfg *config.Config, logger *zap.Logger, c Components) *grpc.Server {
	sugar := logger.Sugar()
	tokens := token.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer)

	idp := local.New(c.Accounts, tokens, c.Mailer, c.Ledger, local.Options{
		EmailLinkEnabled:  cfg.SignIn.EmailLinkEnabled,
		AuthorizedDomains: cfg.SignIn.AuthorizedDomains,
		LinkTTL:           cfg.JWT.LinkTTL,
		IDTokenTTL:        cfg.JWT.IDTokenTTL,
		LinkCooldown:      cfg.SignIn.LinkCooldown,
	}, sugar.Named("provider"))

	svcLogger := sugar.Named("service")
	authSvc := service.NewAuthService(
		idp,
		c.Users,
		pending.NewTracker(c.Pending),
		service.NewFinalizer(c.Users, svcLogger),
		service.ReturnURLPolicy{
			DefaultOrigin:     cfg.SignIn.DefaultOrigin,
			LocalDevURL:       cfg.SignIn.LocalDevURL,
			DynamicLinkDomain: cfg.SignIn.DynamicLinkDomain,
		},
		svcLogger,
	)
	authHandler := handler.NewAuthHandler(authSvc, sugar.Named("handler"))

	// Recovery, logging & auth interceptors
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.UnaryRecoveryInterceptor(sugar),
			middleware.UnaryLoggingInterceptor(sugar),
			middleware.AuthInterceptor(sugar, tokens, signin.GetUserRecordFullMethod),
		),
	)
	signin.RegisterSignInServer(grpcServer, authHandler)
	return grpcServer
}

func (a *AppServer) Run() error {
	sugar := a.logger.Sugar()
	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		sugar.Errorf("listen error on %s: %v", addr, err)
		return fmt.Errorf("listen: %w", err)
	}
	sugar.Infof("gRPC server listening on %s", addr)
	return a.GRPC.Serve(lis)
}

func (a *AppServer) GracefulStop() {
	sugar := a.logger.Sugar()
	sugar.Info("Shutting down gRPC server gracefully")
	a.GRPC.GracefulStop()
	if err := a.db.Close(); err != nil {
		sugar.Warnw("close postgres", "error", err)
	}
	if err := a.rdb.Close(); err != nil {
		sugar.Warnw("close redis", "error", err)
	}
	sugar.Info("Resources closed, server stopped")
}
