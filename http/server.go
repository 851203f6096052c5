package http

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultAPIPrefix       = "/api/"
	DefaultQueueSize       = 1024
	DefaultShutdownTimeout = 5 * time.Second
	ListenBacklog          = 128
	pollTimeout            = time.Second
)

// Authenticator attaches an identity to a request. Its outcome is never
// interpreted by the server, handlers decide what an anonymous request means.
type Authenticator interface {
	Authenticate(ctx *RequestCtx)
}

type AuthenticatorFunc func(ctx *RequestCtx)

func (f AuthenticatorFunc) Authenticate(ctx *RequestCtx) {
	f(ctx)
}

type Server struct {
	Name   string
	Router *Router

	Authenticator Authenticator
	// Fallback serves every path outside APIPrefix. Without one the router
	// sees all requests.
	Fallback  Handler
	APIPrefix string

	Workers         int
	QueueSize       int
	ShutdownTimeout time.Duration
	Logger          *slog.Logger

	readBuffers bytebufferpool.Pool
	tracer      trace.Tracer
	metrics     serverMetrics
}

func NewServer(name string, router *Router) *Server {
	return &Server{
		Name:            name,
		Router:          router,
		APIPrefix:       DefaultAPIPrefix,
		Workers:         DefaultWorkerCount(),
		QueueSize:       DefaultQueueSize,
		ShutdownTimeout: DefaultShutdownTimeout,
		Logger:          slog.New(slog.DiscardHandler),
		tracer:          newTracer(),
		metrics:         newServerMetrics(),
	}
}

// ServeConn handles exactly one request on conn and closes it. Requests that
// fail to parse are dropped without a response.
func (s *Server) ServeConn(conn io.ReadWriteCloser) {
	defer conn.Close()

	buf := s.readBuffers.Get()
	defer s.readBuffers.Put(buf)

	req, err := Parse(conn, buf)
	if err != nil {
		s.Logger.Debug("dropping connection", slog.Any("error", err))
		return
	}

	start := time.Now()
	spanCtx, span := s.tracer.Start(context.Background(), req.Method.String()+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method.String()),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	ctx := NewRequestCtx(spanCtx, conn, req, s.Logger)
	ctx.ID = uuid.NewString()

	if req.HeadersTruncated {
		s.Logger.Warn("request headers truncated",
			slog.String("request_id", ctx.ID),
			slog.Int("kept", len(req.Headers)),
		)
	}

	if s.Authenticator != nil {
		s.Authenticator.Authenticate(ctx)
	}

	handler := s.dispatch(req.Path)
	RecoverMiddleware(s.Logger)(handler)(ctx)

	status := ctx.Status()
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= StatusInternalServerError || status == 0 {
		span.SetStatus(codes.Error, StatusText(status))
	}
	statusAttr := metric.WithAttributes(attribute.Int("http.response.status_code", status))
	s.metrics.requests.Add(spanCtx, 1, statusAttr)
	s.metrics.duration.Record(spanCtx, elapsed.Seconds(), statusAttr)

	s.Logger.Info("request",
		slog.String("request_id", ctx.ID),
		slog.String("method", req.Method.String()),
		slog.String("path", req.Path),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
	)
}

func (s *Server) dispatch(path string) Handler {
	if s.Fallback != nil && !strings.HasPrefix(path, s.APIPrefix) {
		return s.Fallback
	}
	if s.Router == nil {
		return NotFound
	}
	return s.Router.Serve
}

// connJob hands one ready connection to a worker.
type connJob struct {
	server *Server
	conn   io.ReadWriteCloser
}

func (job connJob) Run() {
	job.server.ServeConn(job.conn)
}

func (job connJob) Abort() {
	_ = job.conn.Close()
}
