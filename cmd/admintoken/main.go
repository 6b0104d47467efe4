// Command admintoken mints an admin bearer token for door staff tooling.
//
//	go run ./cmd/admintoken -email door@glitzfusion.in -name "Door Desk" -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glitzfusion/fusionx/common/config"
	"github.com/glitzfusion/fusionx/common/jwt"
)

func main() {
	email := flag.String("email", "", "admin email carried in the token (required)")
	name := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_TTL")
	flag.Parse()

	if err := run(*email, *name, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "admintoken:", err)
		os.Exit(1)
	}
}

func run(email, name string, ttl time.Duration) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("-email is required")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = cfg.JWT.TTL
	}

	token, err := mint(cfg.JWT.Secret, cfg.JWT.Issuer, ttl, email, name)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func mint(secret, issuer string, ttl time.Duration, email, name string) (string, error) {
	return jwt.NewManager(secret, issuer, ttl).GenerateToken(email, name, jwt.RoleAdmin)
}
