package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string // opcional: vacío = comandos globales

	// Defaults de matching (guild/channel configs pueden pisarlos)
	DefaultSeats int
	MaxSeats     int

	// Voz
	VoiceCategoryID string // categoría fallback para crear canales de voz

	// Expiración de mesas pendientes (pruner del bot y janitor)
	ExpireAfterMinutes int
}

func Load() Config {
	get := func(k string, req bool) string {
		v := os.Getenv(k)
		if v == "" && req {
			log.Fatalf("faltante env %s", k)
		}
		return v
	}
	getInt := func(k string, def int) int {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("env %s inválida: %v", k, err)
		}
		return n
	}

	cfg := Config{
		DatabaseURL:        get("DATABASE_URL", true),
		DiscordToken:       get("DISCORD_BOT_TOKEN", true),
		DiscordGuild:       get("DISCORD_GUILD_ID", false),
		DefaultSeats:       getInt("DEFAULT_SEATS", 4),
		MaxSeats:           getInt("MAX_SEATS", 4),
		VoiceCategoryID:    get("VOICE_CATEGORY_ID", false),
		ExpireAfterMinutes: getInt("EXPIRE_AFTER_MINUTES", 45),
	}
	if cfg.DefaultSeats < 2 {
		cfg.DefaultSeats = 2
	}
	if cfg.MaxSeats < cfg.DefaultSeats {
		cfg.MaxSeats = cfg.DefaultSeats
	}
	return cfg
}
