// Command tokengen mints an admin bearer token for the protected
// refresh endpoint using the configured signing secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/yanqian/sales-assistant/internal/domain/auth"
)

func main() {
	subject := flag.String("subject", "admin", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		log.Fatal("AUTH_SECRET must be set")
	}

	svc, err := auth.NewService(auth.Config{Secret: secret, TokenTTL: *ttl})
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}
	token, err := svc.IssueToken(*subject)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
