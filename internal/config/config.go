package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	defaultEnv             = "dev"
	defaultPort            = "8080"
	defaultCatalogPath     = "all_machine_configs.json"
	defaultOptionImageDir  = "option_images"
	defaultMachineImageDir = "machine_images"
	defaultOutputPath      = "quote_output.pdf"
	defaultDownloadName    = "Quote.pdf"
	defaultQuoteTitle      = "Machine Quote"
	defaultTemplateDir     = "web/templates"
	defaultLogLevel        = "info"
	defaultImageMaxWidth   = 1200
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env  string
	Port string

	// CatalogPath is the JSON catalog file. When CatalogDB is set the catalog
	// is read from that SQLite snapshot instead.
	CatalogPath string
	CatalogDB   string

	OptionImageDir  string
	MachineImageDir string
	// ImageMaxWidth is the pixel width uploads are scaled down to.
	ImageMaxWidth int

	OutputPath   string
	DownloadName string
	QuoteTitle   string
	LogoPath     string

	TemplateDir string
	LogLevel    string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path.
func LoadFrom(dotenvPath string) Config {
	// Missing dotenv files are fine; production injects real env vars.
	// godotenv never overwrites variables that are already set.
	if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", dotenvPath).Msg("could not read dotenv file")
	}

	cfg := Config{
		Env:             getEnv("APP_ENV", defaultEnv),
		Port:            getEnv("PORT", defaultPort),
		CatalogPath:     getEnv("CATALOG_PATH", defaultCatalogPath),
		CatalogDB:       os.Getenv("CATALOG_DB"),
		OptionImageDir:  getEnv("OPTION_IMAGE_DIR", defaultOptionImageDir),
		MachineImageDir: getEnv("MACHINE_IMAGE_DIR", defaultMachineImageDir),
		ImageMaxWidth:   getEnvInt("IMAGE_MAX_WIDTH", defaultImageMaxWidth),
		OutputPath:      getEnv("OUTPUT_PATH", defaultOutputPath),
		DownloadName:    getEnv("DOWNLOAD_NAME", defaultDownloadName),
		QuoteTitle:      getEnv("QUOTE_TITLE", defaultQuoteTitle),
		LogoPath:        os.Getenv("LOGO_PATH"),
		TemplateDir:     getEnv("TEMPLATE_DIR", defaultTemplateDir),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
	}

	if cfg.LogoPath != "" {
		if _, err := os.Stat(cfg.LogoPath); err != nil {
			log.Warn().Str("path", cfg.LogoPath).Msg("LOGO_PATH is set but not readable; quotes will have no logo")
		}
	}

	return cfg
}

// IsDev reports whether the app runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Int("default", fallback).Msg("invalid positive integer; using default")
		return fallback
	}
	return v
}
