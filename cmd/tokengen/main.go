// Command tokengen mints a signed bearer token for local use.  Identity is
// normally issued by an external provider sharing JWT_SECRET; this tool
// stands in for it, and -admin grants superuser rights.
//
//	go run ./cmd/tokengen -sub alice -admin -ttl 2h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/auth"
)

func main() {
	sub := flag.String("sub", "", "principal id (token subject)")
	admin := flag.Bool("admin", false, "grant superuser rights")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load() // optional .env with JWT_SECRET

	if *sub == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -sub is required")
		flag.Usage()
		os.Exit(2)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "tokengen: JWT_SECRET is not set")
		os.Exit(1)
	}

	token, exp, err := auth.NewJWTProvider(secret).IssueToken(*sub, *admin, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
}
