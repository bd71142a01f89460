package main

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"fleet-records-backend/config"
	"fleet-records-backend/internal/auth"
	"fleet-records-backend/internal/db"
	"fleet-records-backend/internal/model"
)

// fleet-bootstrap creates the initial superadmin account so a fresh
// deployment has someone able to log in and manage the rest.
func main() {
	var (
		username    = pflag.String("username", "admin", "login for the superadmin account")
		password    = pflag.String("password", "", "password; generated when omitted")
		email       = pflag.String("email", "", "contact email")
		description = pflag.String("description", "Administrator", "unique human-facing account label")
	)
	pflag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	var existing model.User
	err = gormDB.Where("username = ?", *username).First(&existing).Error
	if err == nil {
		log.Fatalf("user %q already exists", *username)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("checking for existing user: %v", err)
	}

	plaintext := *password
	if plaintext == "" {
		plaintext, err = auth.TempPassword()
		if err != nil {
			log.Fatalf("generating password: %v", err)
		}
	}
	hash, err := auth.HashPassword(plaintext)
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}

	user := model.User{
		Username:     *username,
		PasswordHash: hash,
		Email:        *email,
		Description:  *description,
		Role:         model.RoleSuperadmin,
	}
	if err := gormDB.Create(&user).Error; err != nil {
		log.Fatalf("creating superadmin: %v", err)
	}

	if *password == "" {
		log.Printf("created superadmin %q with generated password %s", *username, plaintext)
	} else {
		log.Printf("created superadmin %q", *username)
	}
}
