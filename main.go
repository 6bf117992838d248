package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"codeflow-api/api"
	"codeflow-api/app"
	"codeflow-api/session"
	"codeflow-api/storage"
)

const defaultSessionSecret = "codeflow-demo-secret"

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = defaultSessionSecret
	}

	kv, err := newBackend()
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	store := storage.New(kv)
	sessions := session.NewManager(secret)

	logger := log.New()
	svc := app.NewService(store, sessions, logger)

	ctx := context.Background()
	if user, ok := svc.Restore(ctx); ok {
		logger.WithField("user", user.Email).Info("session restored")
	}
	if err := svc.EnsureSeed(ctx); err != nil {
		log.Fatalf("seed: %v", err)
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("codeflow"))
	e.GET("/metrics", echoprometheus.NewHandler())
	e.Use(api.GzipRequestMiddleware())

	api.Register(e, svc, sessions, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// newBackend picks the KV store: Azure table storage when a connection
// string is configured, redis otherwise.
func newBackend() (storage.KV, error) {
	if connStr := os.Getenv("STORAGE_CONNECTION_STRING"); connStr != "" {
		tableName := os.Getenv("BOARD_TABLE")
		if tableName == "" {
			log.Fatal("missing BOARD_TABLE")
		}
		partition := os.Getenv("BOARD_PARTITION")
		if partition == "" {
			partition = "codeflow"
		}
		return storage.NewTableKV(connStr, tableName, partition)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing storage config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	return storage.NewRedisKV(redis.NewClient(redisOpts)), nil
}
