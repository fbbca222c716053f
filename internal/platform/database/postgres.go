package database

import (
	"database/sql"
	"time"

	"github.com/Latte72R/typing-backend/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
)

var DB *sql.DB

func Connect(logger *zap.Logger) {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		logger.Fatal("error opening database", zap.Error(err))
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		logger.Fatal("error connecting to database", zap.Error(err))
	}

	logger.Info("successfully connected to PostgreSQL database")
}

func Close(logger *zap.Logger) {
	if DB != nil {
		DB.Close()
		logger.Info("database connection closed")
	}
}
