package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	var migrationsDir string
	flag.StringVar(&migrationsDir, "path", "migrations", "каталог с файлами миграций")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			getEnv("PGUSER", "barter_user"),
			getEnv("PGPASSWORD", "barter_pass"),
			getEnv("PGHOST", "localhost"),
			getEnv("PGPORT", "5432"),
			getEnv("PGDATABASE", "barter"),
			getEnv("PGSSLMODE", "disable"),
		)
	}

	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		log.Fatalf("❌ Ошибка при разрешении пути миграций: %v", err)
	}
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		log.Fatalf("❌ Каталог миграций не найден: %s", absPath)
	}

	m, err := migrate.New("file://"+absPath, dbURL)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации миграций: %v", err)
	}

	cmd := "up"
	if args := flag.Args(); len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("❌ Ошибка при откате миграций: %v", err)
		}
		log.Println("✅ Миграции откачены")
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("❌ Ошибка при применении миграций: %v", err)
		}
		log.Println("✅ Миграции применены")
	default:
		log.Fatalf("❌ Неизвестная команда: %s (ожидается up или down)", cmd)
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
