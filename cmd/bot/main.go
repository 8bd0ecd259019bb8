package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/jose-valero/mesa-queue-bot/internal/adapters/discord"
	"github.com/jose-valero/mesa-queue-bot/internal/app/service"
	"github.com/jose-valero/mesa-queue-bot/internal/infra/config"
	"github.com/jose-valero/mesa-queue-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	gameRepo := storage.NewGameRepo(db)
	playerRepo := storage.NewPlayerRepo(db)
	blockRepo := storage.NewBlockRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// Gateway (render + voz) y services
	gw := discordrouter.NewGateway(s)
	sessionSvc := service.NewSessionService(gameRepo, gw, cfg.VoiceCategoryID)
	matcherSvc := service.NewMatcherService(
		gameRepo, playerRepo, blockRepo, settingsRepo,
		gw, sessionSvc,
		cfg.DefaultSeats, cfg.MaxSeats,
	)

	// Router
	r := discordrouter.NewRouter(s, cfg.DiscordGuild, matcherSvc, settingsRepo, cfg.MaxSeats)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados (guild=%q)", cfg.DiscordGuild)

	// Pruner: expira mesas pendientes sin movimiento; el FK libera jugadores
	go func() {
		t := time.NewTicker(1 * time.Minute)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := gameRepo.ExpireStalePending(ctx, time.Duration(cfg.ExpireAfterMinutes)*time.Minute)
			cancel()
			if err != nil {
				log.Printf("[pruner] %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[pruner] mesas expiradas: %d", n)
			}
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}
