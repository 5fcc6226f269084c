package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"board-api/api"
	"board-api/board"
	"board-api/bridge"
	"board-api/hub"
	"board-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
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
	rc := redis.NewClient(redisOpts)

	store := storage.New(rc)
	events := hub.New(rc)
	svc := board.NewService(store, events)

	workers := intEnv("MUTATION_WORKERS", 0)
	buffer := intEnv("MUTATION_BUFFER", 0)
	handoff := 50 * time.Millisecond
	if v := os.Getenv("MUTATION_HANDOFF_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("invalid MUTATION_HANDOFF_TIMEOUT: %v", err)
		}
		handoff = d
	}
	bus := board.NewDispatcher(svc, workers, buffer, handoff)
	defer bus.Close()

	ttl := 24 * time.Hour
	if v := os.Getenv("DEDUPER_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid DEDUPER_TTL: %v", err)
		}
		ttl = d
	}

	gatewayToken := os.Getenv("CHANNEL_GATEWAY_TOKEN")
	gatewayReplyURL := os.Getenv("CHANNEL_GATEWAY_REPLY_URL")
	if gatewayToken == "" {
		log.Fatal("missing channel gateway config")
	}
	channel := bridge.NewWebhookClient(gatewayToken, gatewayReplyURL)
	br := bridge.New(channel, bus, svc, events, bridge.NewRedisDeduper(rc, ttl))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go br.Run(ctx)

	adminToken := os.Getenv("ADMIN_STREAM_TOKEN")
	if adminToken == "" {
		log.Fatal("missing admin stream config")
	}
	auth := api.NewStaticTokenAuth(adminToken)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	logger := log.New()
	api.Register(e, store, bus, events, br.Pairing(), auth, logger)
	channel.Register(e)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("BOARD_API_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

func intEnv(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Fatalf("invalid %s: %v", name, err)
	}
	return n
}
