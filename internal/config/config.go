// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file, and
// environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// BaseURL is the externally visible URL used to build share links.
	BaseURL string `json:"base_url"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn"`

	// StorageBackend selects the blob store: "local" or "s3".
	StorageBackend string `json:"storage_backend"`

	// UploadDir is the blob directory for the local backend.
	UploadDir string `json:"upload_dir"`

	// S3 settings, used only when StorageBackend is "s3".
	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`

	// MaxUploadBytes caps the request body size for uploads.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// AllowedExtensions is the comma-separated list of permitted file
	// extensions for file shares. Text notes are not extension-checked.
	AllowedExtensions string `json:"allowed_extensions"`

	// SessionTTLMinutes bounds the lifetime of login sessions.
	SessionTTLMinutes int `json:"session_ttl_minutes"`

	// CleanIntervalMinutes is how often the expiry cleaner runs.
	CleanIntervalMinutes int `json:"clean_interval_minutes"`

	// RetentionHours is how long consumed/expired records are kept before
	// the cleaner purges them.
	RetentionHours int `json:"retention_hours"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Address, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.BaseURL, "b", "http://localhost:8080", "base URL for share links")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.StorageBackend, "s", "local", "storage backend: local or s3")
	flag.StringVar(&options.UploadDir, "u", "uploads", "upload directory for local storage")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	options.S3Region = "us-east-1"
	options.MaxUploadBytes = 16 << 20
	options.AllowedExtensions = "txt,pdf,png,jpg,jpeg,gif,doc,docx,xls,xlsx"
	options.SessionTTLMinutes = 60
	options.CleanIntervalMinutes = 10
	options.RetentionHours = 30 * 24
}

// Parse parses the command-line flags, the config file, and environment
// variables to set configuration values. It returns a pointer to the
// Options struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	applyEnv(options, os.Getenv)
	return options
}

// applyEnv overrides option values from environment variables. The lookup
// function is injected so tests do not have to mutate the process env.
func applyEnv(o *Options, getenv func(string) string) {
	setStr := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&o.Address, "SERVER_ADDRESS")
	setStr(&o.BaseURL, "BASE_URL")
	setStr(&o.DatabaseDSN, "DATABASE_DSN")
	setStr(&o.StorageBackend, "STORAGE_BACKEND")
	setStr(&o.UploadDir, "UPLOAD_FOLDER")
	setStr(&o.S3Bucket, "S3_BUCKET")
	setStr(&o.S3Region, "S3_REGION")
	setStr(&o.S3AccessKey, "S3_ACCESS_KEY")
	setStr(&o.S3SecretKey, "S3_SECRET_KEY")
	setStr(&o.AllowedExtensions, "ALLOWED_EXTENSIONS")

	if v := getenv("MAX_CONTENT_LENGTH"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.MaxUploadBytes = n
		}
	}
}

// Validate checks the configuration for inconsistencies that would only
// surface later at runtime.
func (o *Options) Validate() error {
	switch o.StorageBackend {
	case "local":
	case "s3":
		if o.S3Bucket == "" || o.S3AccessKey == "" || o.S3SecretKey == "" {
			return fmt.Errorf("s3 configuration incomplete: S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY are required")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", o.StorageBackend)
	}
	if o.MaxUploadBytes < 1024 {
		return fmt.Errorf("max upload size must be at least 1024 bytes")
	}
	return nil
}

// ExtensionAllowed reports whether the filename carries one of the
// configured extensions.
func (o *Options) ExtensionAllowed(filename string) bool {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 || dot == len(filename)-1 {
		return false
	}
	ext := strings.ToLower(filename[dot+1:])
	for _, allowed := range strings.Split(o.AllowedExtensions, ",") {
		if ext == strings.TrimSpace(strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}
