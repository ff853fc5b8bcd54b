// Package main implements a small CLI that prints an API access token signed
// with the configured JWT secret.
//
// Usage:
//
//	MINDPALACE_AUTH_JWT_SECRET=... token-generator -subject reviewer
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/mindpalace/internal/config"
	"github.com/phrazzld/mindpalace/internal/service/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "token-generator: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token-generator", flag.ContinueOnError)
	subject := fs.String("subject", "palace-owner", "subject stored in the token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	token, err := generateToken(cfg.Auth, *subject)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

func generateToken(cfg config.AuthConfig, subject string) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("auth.jwt_secret is not configured")
	}

	jwtService, err := auth.NewJWTService(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create JWT service: %w", err)
	}

	return jwtService.GenerateToken(context.Background(), subject)
}
