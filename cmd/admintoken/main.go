// AngelaMos | 2026
// main.go

// Command admintoken generates the operator signing key pair and mints
// short-lived admin tokens the API verifies with the public half.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/carterperez-dev/oneclick-server/internal/auth"
	"github.com/carterperez-dev/oneclick-server/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "error", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = keygen(os.Args[2:])
	case "mint":
		err = mint(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("admintoken failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admintoken keygen|mint [flags]")
}

func keygen(args []string) error {
	flags := flag.NewFlagSet("keygen", flag.ExitOnError)
	privatePath := flags.String("private", "keys/private.pem", "private key output path")
	publicPath := flags.String("public", "keys/public.pem", "public key output path")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := auth.GenerateKeyPair(*privatePath, *publicPath); err != nil {
		return err
	}

	slog.Info("key pair written", "private", *privatePath, "public", *publicPath)
	return nil
}

func mint(args []string) error {
	flags := flag.NewFlagSet("mint", flag.ExitOnError)
	privatePath := flags.String("private", envOr("JWT_PRIVATE_KEY_PATH", "keys/private.pem"), "private key path")
	subject := flags.String("subject", "", "operator identifier")
	issuer := flags.String("issuer", envOr("JWT_ISSUER", "oneclick-server"), "token issuer")
	audience := flags.String("audience", envOr("JWT_AUDIENCE", "oneclick-admin"), "token audience")
	ttl := flags.Duration("ttl", 15*time.Minute, "token lifetime")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *subject == "" {
		return errors.New("subject is required")
	}

	manager, err := auth.NewJWTManager(config.JWTConfig{
		PrivateKeyPath:    *privatePath,
		AccessTokenExpire: *ttl,
		Issuer:            *issuer,
		Audience:          *audience,
	})
	if err != nil {
		return err
	}

	token, err := manager.CreateAccessToken(*subject, auth.RoleAdmin, *ttl)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
