package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/MicahParks/keyfunc"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/FelixRabenholdDev/Join/api"
	"github.com/FelixRabenholdDev/Join/cascade"
	"github.com/FelixRabenholdDev/Join/internal/consts"
	"github.com/FelixRabenholdDev/Join/join"
	"github.com/FelixRabenholdDev/Join/session"
	"github.com/FelixRabenholdDev/Join/storage"
	"github.com/FelixRabenholdDev/Join/stream"
)

func tableEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing storage config")
	}
	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(redisOptions(redisConn))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var fallbackQueue *azqueue.QueueClient
	if qName := os.Getenv("NOTIFY_FALLBACK_QUEUE"); qName != "" {
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, qName, nil)
		if err != nil {
			log.Fatalf("fallback queue: %v", err)
		}
		fallbackQueue = q
	}
	notifier := storage.NewNotifier(rc, consts.ChangesChannel, fallbackQueue)
	if fallbackQueue != nil {
		go notifier.DrainFallback(ctx)
	}

	tables := storage.Tables{
		Contacts:    tableEnv("CONTACTS_TABLE", consts.ContactsTable),
		Tasks:       tableEnv("TASKS_TABLE", consts.TasksTable),
		Subtasks:    tableEnv("SUBTASKS_TABLE", consts.SubtasksTable),
		Assigns:     tableEnv("ASSIGNS_TABLE", consts.AssignsTable),
		Credentials: tableEnv("CREDENTIALS_TABLE", consts.CredentialsTable),
	}
	store, err := storage.New(connStr, tables, notifier)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var auth *session.Auth
	if os.Getenv("AUTH0_TEST_MODE") == "1" {
		secret := os.Getenv("TEST_JWT_SECRET")
		if secret == "" {
			log.Fatal("missing TEST_JWT_SECRET")
		}
		auth = session.NewTestAuth([]byte(secret))
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		domain := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || domain == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = session.NewAuth(jwks, jwtAudience, "https://"+domain+"/")
	}

	signal := session.NewSignal()
	creds := session.NewCredentials(store, signal)
	coordinator := cascade.NewCoordinator(store, creds, uuid.NewString)

	watcher := stream.NewWatcher(rc, store, consts.ChangesChannel)
	directory := join.NewDirectory(watcher)
	enricher := join.NewEnricher(watcher, directory)
	aggregator := join.NewAggregator(watcher, enricher, signal)
	board := join.NewBoard(aggregator, rc, consts.BoardCacheKey)
	go board.Run(ctx)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	api.Register(e, board, coordinator, store, auth, signal)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}
	e.Logger.Fatal(e.Start(listenAddr))
}
