package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-gateway/internal/auth"
	"github.com/iliyamo/auth-gateway/internal/config"
	"github.com/iliyamo/auth-gateway/internal/database"
	"github.com/iliyamo/auth-gateway/internal/handler"
	"github.com/iliyamo/auth-gateway/internal/mail"
	"github.com/iliyamo/auth-gateway/internal/menu"
	"github.com/iliyamo/auth-gateway/internal/queue"
	"github.com/iliyamo/auth-gateway/internal/repository"
	"github.com/iliyamo/auth-gateway/internal/router"
	queue_publisher "github.com/iliyamo/auth-gateway/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // may be nil; rate limiting and caching degrade gracefully
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response caching disabled")
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	resources := repository.NewResourceRepo(db)
	resets := repository.NewResetTokenRepo(db)

	var mailer mail.Mailer
	if cfg.MailgunDomain != "" {
		mailer = mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
	} else {
		log.Println("mailgun not configured: outbound mail is logged only")
		mailer = mail.LogMailer{}
	}

	svc := &auth.Service{
		Users:      users,
		Resets:     resets,
		Tokens:     auth.NewTokenService(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Lockout:    auth.NewLockout(users),
		Mailer:     mailer,
		Events:     queue_publisher.New(),
		BaseURL:    cfg.BaseURL,
		MailFrom:   cfg.MailFrom,
		BcryptCost: cfg.BcryptCost,
	}

	// Background audit-log consumer; reconnects on broker failures.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, svc), cfg.JWTSecret, rdb)
	router.RegisterMenus(e, handler.NewMenuHandler(menu.NewResolver(roles, resources)), cfg.JWTSecret, rdb)
	router.RegisterAdmin(e, handler.NewAdminHandler(users, roles, resources), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
