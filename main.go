package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"channel-service/internal/activity"
	"channel-service/internal/cache"
	"channel-service/internal/config"
	"channel-service/internal/db"
	"channel-service/internal/dispatch"
	grpcclient "channel-service/internal/grpc"
	"channel-service/internal/handlers"
	"channel-service/internal/identity"
	"channel-service/internal/kafka"
	"channel-service/internal/logger"
	"channel-service/internal/messaging"
	"channel-service/internal/middleware"
	"channel-service/internal/notifications"
	"channel-service/internal/observability"
	"channel-service/internal/presence"
	"channel-service/internal/rabbitmq"
	"channel-service/internal/registry"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
	"channel-service/internal/ws"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Service.InstanceID == "" {
		cfg.Service.InstanceID = uuid.NewString()
	}

	logg, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	logg = logg.With(zap.String("service", cfg.Service.Name), zap.String("instance_id", cfg.Service.InstanceID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Service, cfg.Telemetry)
	if err != nil {
		logg.Fatal("failed to init tracer", zap.Error(err))
	}

	database, err := db.Connect(ctx, cfg.Database, logg)
	if err != nil {
		logg.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	var (
		store       cache.Cache      = cache.Noop{}
		tracker     presence.Tracker = presence.Disabled{}
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		switch {
		case err != nil && cfg.Realtime.Relay:
			logg.Fatal("redis is required for the realtime relay", zap.Error(err))
		case err != nil:
			logg.Warn("redis unavailable, running without cache and presence", zap.Error(err))
		default:
			defer redisClient.Close()
			store = cache.NewRedisCache(redisClient, cfg.Cache, logg)
			tracker = presence.NewRedisTracker(redisClient, cfg.Presence.TTL, logg)
		}
	}

	publisher := newPublisher(cfg.Events, logg)
	defer publisher.Close()
	observability.SetPublisher(publisher, cfg.Events.Broker)
	emitter := telemetry.NewEmitter(publisher, cfg.Service.Name, cfg.Service.Environment, logg)

	var dispatcher dispatch.Dispatcher = dispatch.Inline{Timeout: cfg.Dispatch.TaskTimeout, Log: logg}
	var queue *dispatch.Queue
	if cfg.Dispatch.Workers > 0 {
		queue = dispatch.NewQueue(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, cfg.Dispatch.TaskTimeout, logg)
		dispatcher = queue
	}

	var verifier identity.Verifier
	switch cfg.Auth.Mode {
	case "grpc":
		authConn := dialGRPC(cfg.Auth.GRPCAddr, logg)
		defer authConn.Close()
		verifier = grpcclient.NewAuthClient(authConn)
	default:
		jwtVerifier, err := identity.NewJWTVerifier(cfg.Auth)
		if err != nil {
			logg.Fatal("failed to build jwt verifier", zap.Error(err))
		}
		verifier = jwtVerifier
	}

	var users identity.UserSource
	if cfg.Directory.GRPCAddr != "" {
		userConn := dialGRPC(cfg.Directory.GRPCAddr, logg)
		defer userConn.Close()
		users = grpcclient.NewUserClient(userConn)
	}
	directory := identity.NewCachedDirectory(users, store, cfg.Cache.ProfileTTL, cfg.Directory.Timeout, logg)

	channelRepo := repositories.NewChannelRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	activityRepo := repositories.NewActivityRepo(database)

	members := messaging.NewMembers(channelRepo, store, cfg.Cache.MembershipTTL)
	connections := registry.New(members, logg)

	var broadcaster registry.Broadcaster = connections
	if cfg.Realtime.Relay {
		relay := registry.NewRelay(connections, redisClient, cfg.Realtime.RelayChannel, cfg.Service.InstanceID, logg)
		broadcaster = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				logg.Error("relay stopped", zap.Error(err))
			}
		}()
	}

	notifier := notifications.NewService(notificationRepo, broadcaster, logg)
	recorder := activity.NewRecorder(activityRepo, emitter, logg)

	service := messaging.New(messaging.Dependencies{
		Channels:    channelRepo,
		Messages:    messageRepo,
		Reactions:   reactionRepo,
		Members:     members,
		Cache:       store,
		CacheConfig: cfg.Cache,
		Broadcaster: broadcaster,
		Router:      connections,
		Notifier:    notifier,
		Activity:    recorder,
		Directory:   directory,
		Dispatcher:  dispatcher,
		Log:         logg,
	})

	gateway := ws.NewGateway(verifier, service, connections, tracker, cfg.Realtime, logg)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Service.Name))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logg))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": connections.ConnectionCount()})
	})
	router.GET("/ws", gateway.Handle)

	api := router.Group("/api/v1", middleware.Auth(verifier))
	handlers.Routes{
		Channels:      handlers.NewChannelHandler(service, tracker, logg),
		Messages:      handlers.NewMessageHandler(service),
		Presence:      handlers.NewPresenceHandler(tracker, logg),
		Notifications: handlers.NewNotificationHandler(notifier),
	}.Register(api)
	handlers.RegisterDebugRoutes(api, emitter, cfg.Service.DebugRoutes)

	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logg.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Warn("http shutdown", zap.Error(err))
	}
	if queue != nil {
		if err := queue.Close(shutdownCtx); err != nil {
			logg.Warn("dispatch queue drain", zap.Error(err))
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logg.Warn("tracer shutdown", zap.Error(err))
	}
}

// newPublisher picks the event broker. A broker that cannot be reached degrades to a noop publisher.
func newPublisher(cfg config.EventsConfig, log *zap.Logger) rabbitmq.Publisher {
	switch cfg.Broker {
	case "amqp":
		return rabbitmq.NewPublisher(cfg.AMQPURL, cfg.Exchange, log)
	case "kafka":
		pub, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Warn("kafka disabled, using noop", zap.Error(err))
			return rabbitmq.Noop(err.Error(), log)
		}
		return pub
	default:
		return rabbitmq.Noop("events.broker is none", log)
	}
}

func dialGRPC(addr string, log *zap.Logger) *grpc.ClientConn {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	)
	if err != nil {
		log.Fatal("failed to create grpc client", zap.String("addr", addr), zap.Error(err))
	}
	return conn
}
