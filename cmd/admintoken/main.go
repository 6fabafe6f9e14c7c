// Command admintoken prints a signed ADMIN access token for the catalog
// write endpoints.  It reads JWT_SECRET and ADMIN_TOKEN_TTL_MIN the same
// way the server does.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/flight-booking/internal/config"
	"github.com/iliyamo/flight-booking/internal/utils"
)

func main() {
	subject := flag.String("sub", "admin", "token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to ADMIN_TOKEN_TTL_MIN)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	life := *ttl
	if life <= 0 {
		life = time.Duration(cfg.AdminTokenTTLMin) * time.Minute
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, *subject, utils.RoleAdmin, life)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
