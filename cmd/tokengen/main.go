// Command tokengen mints an access token for local testing and ops work:
//
//	JWT_SECRET=... go run ./cmd/tokengen -user 7 -role CUSTOMER -ttl 2h
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
	"github.com/iliyamo/cinema-seat-booking/internal/utils"
)

func main() {
	config.LoadDotEnv()

	userID := flag.Uint64("user", 0, "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleCustomer, "CUSTOMER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC secret (defaults to $JWT_SECRET)")
	flag.Parse()

	r := strings.ToUpper(*role)
	switch {
	case *userID == 0:
		fail("-user is required")
	case *secret == "":
		fail("no secret: set JWT_SECRET or pass -secret")
	case r != middleware.RoleCustomer && r != middleware.RoleAdmin:
		fail("unknown role " + *role)
	}

	tok, err := utils.NewAccessToken(*secret, *userID, r, *ttl)
	if err != nil {
		fail(err.Error())
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "tokengen:", msg)
	os.Exit(2)
}
