package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env holds the process-wide environment inputs named in spec §6. Loaded
// once at startup by cmd/main.go, same spirit as the teacher reading
// PORT/BEHIND_PROXY directly off os.Getenv in cmd/main.go.
type Env struct {
	DatabaseURL        string
	RequestTimeout     time.Duration
	Variant            string
	VariantDescription string
	VariantHideInUI    bool

	JWTApplicationSecret string
	ApplicationUserSecret string

	DiscordStatusMessageUpdaterAvailable bool

	Port            string
	BehindProxy     bool
	DBMaxOpenConns  int
}

// Load reads and validates the environment. Missing required variables
// produce an error that cmd/main.go treats as a fatal process error (spec
// §7, "Fatal process").
func Load() (Env, error) {
	e := Env{
		RequestTimeout:         5 * time.Second,
		Port:                   "8080",
		DBMaxOpenConns:         5,
		Variant:                "sp2any",
		VariantDescription:     "",
	}

	e.DatabaseURL = os.Getenv("DATABASE_URL")
	if e.DatabaseURL == "" {
		return e, fmt.Errorf("config: DATABASE_URL is required")
	}

	e.JWTApplicationSecret = os.Getenv("JWT_APPLICATION_SECRET")
	if e.JWTApplicationSecret == "" {
		return e, fmt.Errorf("config: JWT_APPLICATION_SECRET is required")
	}

	e.ApplicationUserSecret = os.Getenv("APPLICATION_USER_SECRETS")
	if e.ApplicationUserSecret == "" {
		return e, fmt.Errorf("config: APPLICATION_USER_SECRETS is required")
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return e, fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
		}
		e.RequestTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("SP2ANY_VARIANT"); v != "" {
		e.Variant = v
	}
	e.VariantDescription = os.Getenv("SP2ANY_VARIANT_DESCRIPTION")
	e.VariantHideInUI = os.Getenv("SP2ANY_VARIANT_HIDE_IN_UI") == "true"
	e.DiscordStatusMessageUpdaterAvailable = os.Getenv("DISCORD_STATUS_MESSAGE_UPDATER_AVAILABLE") == "true"

	if v := os.Getenv("PORT"); v != "" {
		e.Port = v
	}
	e.BehindProxy = os.Getenv("BEHIND_PROXY") == "true"

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return e, fmt.Errorf("config: DB_MAX_CONNS: %w", err)
		}
		e.DBMaxOpenConns = n
	}

	return e, nil
}
