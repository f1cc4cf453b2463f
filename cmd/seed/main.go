package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"ai-counselor-be/internal/config"
	"ai-counselor-be/internal/model"
	"ai-counselor-be/internal/pkg/serverutils"
	"ai-counselor-be/pkg/database"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Creates (or reuses) a demo user and prints a bearer token for it.
func main() {
	email := flag.String("email", "demo@counselor.local", "demo user email")
	name := flag.String("name", "Demo User", "demo user full name")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.App.JWTSecret == "" {
		log.Fatal("Error: JWT_SECRET is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	user := model.User{}
	err = db.Where(model.User{Email: *email}).
		Attrs(model.User{Id: uuid.New(), FullName: *name}).
		FirstOrCreate(&user).Error
	if err != nil {
		log.Fatalf("Error: Failed to seed user: %v", err)
	}

	token, err := serverutils.IssueUserToken(user.Id, cfg.App.JWTSecret, jwt.MapClaims{
		"exp": time.Now().Add(*ttl).Unix(),
	})
	if err != nil {
		log.Fatalf("Error: Failed to issue token: %v", err)
	}

	log.Printf("✅ Seeded user %s (%s)", user.Email, user.Id)
	fmt.Println(token)
}
