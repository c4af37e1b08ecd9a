package main

import (
	"strings"

	"github.com/EternisAI/cnc-server/internal/api/http"
	"github.com/EternisAI/cnc-server/internal/auth"
	"github.com/EternisAI/cnc-server/internal/db"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig
	Http     http.Config
	Database db.Config
	Jwt      auth.JWTConfig
	Seed     SeedConfig
}

// SeedConfig describes the initial operator account created on first start.
type SeedConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/cnc-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)
}
