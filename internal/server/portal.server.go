package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"medportal/internal/bot"
	"medportal/internal/config"
	"medportal/internal/handler"
	"medportal/internal/jobs"
	"medportal/internal/otp"
	"medportal/internal/repository"
	"medportal/internal/router"
	"medportal/internal/service/email"
	"medportal/internal/service/telegram"
	"medportal/internal/session"
	"medportal/internal/usecase"
	"medportal/pkg/cache"
	"medportal/pkg/id"
	"medportal/pkg/jwtutil"
)

type Server struct {
	cfg    *config.AppConfig
	http   *http.Server
	bot    *bot.Bot
	jobs   *jobs.Scheduler
	cache  *cache.Cache
	logger *zap.Logger
}

func New(ctx context.Context, cfg *config.AppConfig) (*Server, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	sugar := logger.Sugar()

	pool, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisCache := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)

	idGen, err := id.NewSnowflake(1)
	if err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	userRepo := repository.NewUserRepo(pool)
	patientRepo := repository.NewPatientRepo(pool)
	apptRepo := repository.NewAppointmentRepo(pool)
	otpLogRepo := repository.NewOtpLogRepo(pool)
	emailLogRepo := repository.NewEmailLogRepo(pool)

	mailer := email.NewSMTPSender(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom,
		emailLogRepo, sugar,
	)

	otpStore := otp.NewRedisStore(redisCache)
	otpLimiter := otp.NewLimiter(redisCache, cfg.OTPWindow, cfg.OTPMaxPerWindow, cfg.OTPCooldown)
	tokens := jwtutil.NewGenerator(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)

	verifyUC := usecase.NewVerificationUsecase(
		userRepo, patientRepo, otpStore, otpLimiter, otpLogRepo,
		mailer, tokens, idGen, cfg.OTPTTL,
	)
	bookingUC := usecase.NewBookingUsecase(apptRepo, patientRepo, userRepo, mailer, idGen)
	contactUC := usecase.NewContactUsecase(patientRepo, userRepo, mailer)

	authHandler := handler.NewAuthHandler(verifyUC)
	apptHandler := handler.NewAppointmentHandler(bookingUC)

	r := router.New(authHandler, apptHandler, tokens, redisCache)

	var portalBot *bot.Bot
	if cfg.TelegramBotToken != "" {
		tg := telegram.NewClient(cfg.TelegramBotToken)
		sessions := session.NewRedisStore(redisCache, cfg.BotSessionTTL)
		portalBot = bot.New(tg, sessions, verifyUC, bookingUC, contactUC, sugar)
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, bot channel disabled")
	}

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		bot:    portalBot,
		jobs:   jobs.NewScheduler(otpLogRepo, emailLogRepo),
		cache:  redisCache,
		logger: logger,
	}, nil
}

// Run serves HTTP, starts the bot loop and the hygiene jobs, and
// blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.jobs.Start(); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}

	if s.bot != nil {
		go s.bot.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", s.cfg.HTTPAddr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.jobs.Stop()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := s.cache.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
	_ = s.logger.Sync()
	return nil
}
