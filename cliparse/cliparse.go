package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
)

// DefaultTokenTTLMinutes is how long a magic link stays redeemable.
const DefaultTokenTTLMinutes = 15

type Config struct {
	Port            int
	DatabaseURL     string
	DatabaseType    string
	FingerprintSalt string
	TokenTTLMinutes int
	PublicURL       string

	// SMTP settings; mail is disabled when SMTPHost is empty.
	SMTPHost       string
	SMTPUser       string
	SMTPPass       string
	MailFrom       string
	SMTPSkipVerify bool
}

// ParseFlags validates flags, falling back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("ballotbox", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "Public base URL used in magic links")
	fs.IntVar(&cfg.TokenTTLMinutes, "token-ttl", 0, "Magic link TTL in minutes")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.FingerprintSalt, "fingerprint-salt", "", "Voter fingerprint salt (prefer env)")

	// Mail
	fs.StringVar(&cfg.SMTPHost, "smtp-host", "", "SMTP host:port (empty disables mail)")
	fs.StringVar(&cfg.SMTPUser, "smtp-user", "", "SMTP user")
	fs.StringVar(&cfg.SMTPPass, "smtp-pass", "", "SMTP password (prefer env)")
	fs.StringVar(&cfg.MailFrom, "mail-from", "", "From address for outgoing mail")
	fs.BoolVar(&cfg.SMTPSkipVerify, "smtp-skip-verify", false, "Skip SMTP TLS certificate verification")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3320 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.TokenTTLMinutes == 0 {
		if ttlStr := os.Getenv("TOKEN_TTL_MINUTES"); ttlStr != "" {
			ttl, err := strconv.Atoi(ttlStr)
			if err != nil || ttl <= 0 {
				return Config{}, errors.New("invalid TOKEN_TTL_MINUTES env variable")
			}
			cfg.TokenTTLMinutes = ttl
		} else {
			cfg.TokenTTLMinutes = DefaultTokenTTLMinutes
		}
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = os.Getenv("PUBLIC_URL")
		if cfg.PublicURL == "" {
			cfg.PublicURL = "http://localhost:3001"
		}
	}

	// Secrets - MUST be provided
	if cfg.FingerprintSalt == "" {
		cfg.FingerprintSalt = os.Getenv("FINGERPRINT_SALT")
	}
	if cfg.FingerprintSalt == "" {
		return Config{}, errors.New("FINGERPRINT_SALT required")
	}

	if cfg.SMTPHost == "" {
		cfg.SMTPHost = os.Getenv("SMTP_HOST")
	}
	if cfg.SMTPUser == "" {
		cfg.SMTPUser = os.Getenv("SMTP_USER")
	}
	if cfg.SMTPPass == "" {
		cfg.SMTPPass = os.Getenv("SMTP_PASS")
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = os.Getenv("MAIL_FROM")
		if cfg.MailFrom == "" {
			cfg.MailFrom = "NovaVote <no-reply@novavote.example>"
		}
	}

	return cfg, nil
}
