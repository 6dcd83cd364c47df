package intel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

type listenTarget struct {
	network string
	address string
}

func parseListenAddr(addr string) (listenTarget, error) {
	value := strings.TrimSpace(addr)
	if value == "" {
		return listenTarget{}, fmt.Errorf("listen address cannot be empty")
	}
	if strings.HasPrefix(value, "unix://") {
		path := strings.TrimPrefix(value, "unix://")
		if path == "" {
			return listenTarget{}, fmt.Errorf("unix socket path cannot be empty")
		}
		return listenTarget{network: "unix", address: path}, nil
	}
	if _, _, err := net.SplitHostPort(value); err != nil {
		return listenTarget{}, fmt.Errorf("invalid listen address %q: %w", value, err)
	}
	return listenTarget{network: "tcp", address: value}, nil
}

// ValidateListenAddr reports whether addr is a usable host:port or unix:// address.
func ValidateListenAddr(addr string) error {
	_, err := parseListenAddr(addr)
	return err
}

// DialTarget converts a listen address into a gRPC client target.
func DialTarget(addr string) (string, error) {
	target, err := parseListenAddr(addr)
	if err != nil {
		return "", err
	}
	if target.network == "unix" {
		return "unix://" + target.address, nil
	}
	return "passthrough:///" + target.address, nil
}

func listen(addr string) (net.Listener, error) {
	target, err := parseListenAddr(addr)
	if err != nil {
		return nil, err
	}
	if target.network == "unix" {
		if err := os.Remove(target.address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	lis, err := net.Listen(target.network, target.address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return lis, nil
}
