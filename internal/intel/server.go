package intel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/flyvpn/flyvpn-tui/internal/progression"
	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// DefaultListenAddr is used when Options.ListenAddr is empty.
const DefaultListenAddr = "127.0.0.1:50061"

// Options configure the intel RPC server.
type Options struct {
	ListenAddr  string
	MaxMsgBytes int
	TLS         TLSOptions
	Logger      *slog.Logger
}

// TLSOptions describe optional TLS configuration for the RPC server.
type TLSOptions struct {
	CertFile string
	KeyFile  string
	ClientCA string
}

// Server exposes the Service over gRPC.
type Server struct {
	service *Service
	opts    Options
	log     *slog.Logger
	grpc    *grpc.Server
	health  *health.Server
}

// NewServer creates an intel RPC server backed by service.
func NewServer(service *Service, opts Options) *Server {
	if opts.ListenAddr == "" {
		opts.ListenAddr = DefaultListenAddr
	}
	if opts.MaxMsgBytes == 0 {
		opts.MaxMsgBytes = 1 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: service, opts: opts, log: logger.With("component", "intel-rpc")}
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	lis, err := listen(s.opts.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	serverOpts, err := s.serverOptions()
	if err != nil {
		lis.Close()
		return err
	}

	s.grpc = grpc.NewServer(serverOpts...)
	RegisterIntelServer(s.grpc, &rpcHandler{service: s.service})
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()

	s.log.Info("intel rpc listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) serverOptions() ([]grpc.ServerOption, error) {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(s.opts.MaxMsgBytes),
		grpc.MaxSendMsgSize(s.opts.MaxMsgBytes),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 20 * time.Second,
		}),
		grpc.ChainUnaryInterceptor(s.logCalls),
	}
	if s.opts.TLS.CertFile != "" && s.opts.TLS.KeyFile != "" {
		cred, err := s.loadTLSCreds()
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(cred))
	}
	return opts, nil
}

func (s *Server) loadTLSCreds() (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(s.opts.TLS.CertFile, s.opts.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls keypair: %w", err)
	}
	tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if s.opts.TLS.ClientCA != "" {
		caData, err := os.ReadFile(s.opts.TLS.ClientCA)
		if err != nil {
			return nil, fmt.Errorf("read client ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("append client ca certs")
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return credentials.NewTLS(tlsConfig), nil
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("intel rpc", "method", info.FullMethod, "peer", peerKey(ctx), "took", time.Since(start), "err", err)
	return resp, err
}

type rpcHandler struct {
	service *Service
}

func (h *rpcHandler) Neutralize(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := h.service.Neutralize(in.GetValue())
	if errors.Is(err, ErrEmptyCategory) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resultStruct(res)
}

func (h *rpcHandler) Progress(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return progressStruct(h.service.Progress())
}

func resultStruct(res progression.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"level":          res.Level,
		"xp":             res.XP,
		"xpForNextLevel": state.XPForNextLevel(res.Level),
		"total":          res.Total,
		"levelUps":       res.LevelUps,
		"newBadges":      stringList(res.NewBadges),
	})
}

func progressStruct(p state.Progression) (*structpb.Struct, error) {
	categories := make(map[string]any, len(p.Stats.Categories))
	for k, v := range p.Stats.Categories {
		categories[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"level":          p.Level,
		"xp":             p.XP,
		"xpForNextLevel": state.XPForNextLevel(p.Level),
		"total":          p.Stats.TotalNeutralized,
		"categories":     categories,
		"badges":         stringList(p.UnlockedBadges),
	})
}

func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func peerKey(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return fmt.Sprintf("%s://%s", p.Addr.Network(), p.Addr.String())
	}
	return "unknown"
}
