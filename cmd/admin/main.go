package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/auth"
	"github.com/leaplineadmin/brevy-sub002/internal/config"
	"github.com/leaplineadmin/brevy-sub002/internal/database"
)

// Seeds an account with a random one-time password. Intended for support and
// staging environments, not the public signup flow.
func main() {
	var (
		email    = flag.String("email", "", "account email (required)")
		username = flag.String("username", "", "account username (required)")
		dbHost   = flag.String("db-host", "", "database host (defaults to DATABASE_HOST)")
		dbPort   = flag.Int("db-port", 0, "database port (defaults to DATABASE_PORT)")
		dbName   = flag.String("db-name", "", "database name (defaults to POSTGRES_DB)")
		dbUser   = flag.String("db-user", "", "database user (defaults to POSTGRES_USER)")
		dbPass   = flag.String("db-password", "", "database password (defaults to POSTGRES_PASSWORD)")
		sslMode  = flag.String("db-sslmode", "", "database sslmode (defaults to DATABASE_SSLMODE)")
	)
	flag.Parse()

	e := strings.ToLower(strings.TrimSpace(*email))
	u := strings.TrimSpace(*username)
	if e == "" || u == "" {
		log.Fatal("missing required flags: --email and --username")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var existing database.User
	switch err := db.Where("email = ? OR username = ?", e, u).First(&existing).Error; {
	case err == nil:
		log.Fatalf("account %q / %q already exists", e, u)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query account: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		Email:        e,
		Username:     u,
		PasswordHash: hashed,
		Language:     "en",
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create account: %v", err)
	}

	fmt.Printf("created account %q (id %d)\n", e, user.ID)
	fmt.Printf("one-time password: %s\n", password)
}

func loadDatabaseConfig(host string, port int, name, user, password, sslMode string) (config.DatabaseConfig, error) {
	cfg := config.DatabaseConfig{
		Host:     firstNonEmpty(host, os.Getenv("DATABASE_HOST"), "localhost"),
		Name:     firstNonEmpty(name, os.Getenv("POSTGRES_DB"), "brevy"),
		User:     firstNonEmpty(user, os.Getenv("POSTGRES_USER"), "brevy"),
		Password: firstNonEmpty(password, os.Getenv("POSTGRES_PASSWORD")),
		SSLMode:  firstNonEmpty(sslMode, os.Getenv("DATABASE_SSLMODE"), "disable"),
	}

	cfg.Port = port
	if cfg.Port == 0 {
		if raw := os.Getenv("DATABASE_PORT"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return cfg, fmt.Errorf("parse DATABASE_PORT %q: %w", raw, err)
			}
			cfg.Port = parsed
		} else {
			cfg.Port = 5432
		}
	}

	if cfg.Password == "" {
		return cfg, errors.New("database password is required (flag --db-password or POSTGRES_PASSWORD)")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func generateRandomPassword(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
