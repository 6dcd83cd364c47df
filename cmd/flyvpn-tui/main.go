package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/flyvpn/flyvpn-tui/internal/app"
	"github.com/flyvpn/flyvpn-tui/internal/config"
	"github.com/flyvpn/flyvpn-tui/internal/intel"
)

func main() {
	var (
		configPath string
		themeName  string
		listenAddr string
		apiAddr    string
		neutralize string
		progress   bool
	)

	flag.StringVar(&configPath, "config", "", "Path to the config file (defaults to XDG config dir)")
	flag.StringVar(&themeName, "theme", "", "Override theme (light, dark, auto)")
	flag.StringVar(&listenAddr, "listen", "", "Threat intel gRPC listen address (overrides intel_listen)")
	flag.StringVar(&apiAddr, "api", "", "HTTP API listen address (overrides api_listen)")
	flag.StringVar(&neutralize, "neutralize", "", "Report a neutralized threat category or id to a running client and exit")
	flag.BoolVar(&progress, "progress", false, "Print the progression of a running client and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if neutralize != "" || progress {
		if err := query(ctx, configPath, listenAddr, neutralize); err != nil {
			fmt.Fprintf(os.Stderr, "flyvpn-tui: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts := app.Options{
		ConfigPath: configPath,
		Theme:      themeName,
		ListenAddr: listenAddr,
		APIAddr:    apiAddr,
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "flyvpn-tui: %v\n", err)
		os.Exit(1)
	}
}

// query talks to the intel endpoint of a running client.
func query(ctx context.Context, configPath, listenAddr, ref string) error {
	addr := listenAddr
	if addr == "" {
		path, err := config.ResolvePath(configPath)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		addr = cfg.IntelListen
	}
	target, err := intel.DialTarget(addr)
	if err != nil {
		return err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := intel.NewClient(conn)
	var res *structpb.Struct
	if ref != "" {
		res, err = client.Neutralize(ctx, ref)
	} else {
		res, err = client.Progress(ctx)
	}
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(res)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
