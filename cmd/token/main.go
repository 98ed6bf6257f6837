// Command token mints a bearer token for local testing.
package main

import (
	"flag"
	"fmt"
	"log"

	"deptrooms/internal/config"
	"deptrooms/internal/domain"
	jwtsvc "deptrooms/internal/pkg/jwt"
)

func main() {
	userID := flag.Int64("user", 1, "user id")
	roleFlag := flag.String("role", string(domain.RoleStudent), "student, faculty, staff or admin")
	flag.Parse()

	role, err := domain.ParseRole(*roleFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AppEnv != "dev" {
		log.Fatal("token minting is only available with APP_ENV=dev")
	}

	token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(*userID, role)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
