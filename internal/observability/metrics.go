package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the channel service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcClientHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_client_handled_total",
			Help: "Total number of gRPC calls made to identity collaborators.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections on this instance.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"direction", "event"},
	)
	broadcastDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_broadcast_drops_total",
			Help: "Events dropped because a connection could not accept them.",
		},
	)
	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_requests_total",
			Help: "Cache lookups by keyspace and result.",
		},
		[]string{"keyspace", "result"},
	)
	dispatchTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dispatch_tasks_total",
			Help: "Detached side-effect tasks by name and outcome.",
		},
		[]string{"task", "outcome"},
	)
	dispatchQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_dispatch_queue_depth",
			Help: "Tasks waiting in the dispatch queue.",
		},
	)
	brokerPublishErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_broker_publish_errors_total",
			Help: "Total number of activity publish errors per broker.",
		},
		[]string{"broker"},
	)
	relayMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_messages_total",
			Help: "Cross-instance relay messages by direction.",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcClientHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		broadcastDropsTotal,
		cacheRequestsTotal,
		dispatchTasksTotal,
		dispatchQueueDepth,
		brokerPublishErrorsTotal,
		relayMessagesTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// GRPCClientMetricsUnaryInterceptor counts outbound calls by result code.
func GRPCClientMetricsUnaryInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		err := invoker(ctx, method, req, reply, cc, opts...)
		statusInfo := status.Convert(err)
		service, name := splitFullMethod(method)
		grpcClientHandledTotal.WithLabelValues(service, name, statusInfo.Code().String()).Inc()
		return err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(direction, event string) {
	wsEventsTotal.WithLabelValues(direction, event).Inc()
}

func IncBroadcastDrop() {
	broadcastDropsTotal.Inc()
}

func IncCacheResult(keyspace, result string) {
	cacheRequestsTotal.WithLabelValues(keyspace, result).Inc()
}

func IncDispatchTask(task, outcome string) {
	dispatchTasksTotal.WithLabelValues(task, outcome).Inc()
}

func SetDispatchQueueDepth(n int) {
	dispatchQueueDepth.Set(float64(n))
}

func IncBrokerPublishError(broker string) {
	brokerPublishErrorsTotal.WithLabelValues(broker).Inc()
}

func IncRelayMessage(direction string) {
	relayMessagesTotal.WithLabelValues(direction).Inc()
}
