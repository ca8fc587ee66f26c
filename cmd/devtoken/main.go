// Command devtoken mints a staff access token for local runs, signed with
// JWT_SECRET.  Login is handled by the hospital's identity service in
// production.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/iliyamo/ward-bed-registry/internal/config"
	"github.com/iliyamo/ward-bed-registry/internal/session"
	"github.com/iliyamo/ward-bed-registry/internal/utils"
)

func main() {
	staff := flag.String("staff", "dev-nurse", "staff id (sub claim)")
	role := flag.String("role", session.RoleNurse, "role: "+strings.Join(session.AllRoles, ", "))
	flag.Parse()

	config.LoadEnvFile()
	cfg := config.LoadDashboard()

	known := false
	for _, r := range session.AllRoles {
		if r == *role {
			known = true
		}
	}
	if !known {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(cfg.JWTSecret, *staff, *role, cfg.TokenTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
