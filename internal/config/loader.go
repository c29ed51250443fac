package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"

	"github.com/rpattn/tablekit/internal/db"
)

// Preset store kinds.
const (
	PresetStorePostgres = "postgres"
	PresetStoreFile     = "file"
	PresetStoreMemory   = "memory"
)

// Config is the full application configuration.
type Config struct {
	Database db.Config
	Tables   TablesConfig
	Presets  PresetsConfig
	Server   ServerConfig
	Export   ExportConfig
}

// TablesConfig locates the table definition files and the paging defaults
// applied when a definition leaves them out.
type TablesConfig struct {
	Dir         string
	PerPage     int
	PageOptions []int
}

type PresetsConfig struct {
	Store string
	Path  string
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

type ExportConfig struct {
	Directory string
	PageSize  int
}

// DefaultConfig returns the configuration used when neither the config file
// nor the environment sets a value.
func DefaultConfig() Config {
	return Config{
		Database: db.DefaultConfig(),
		Tables: TablesConfig{
			Dir:         "tables",
			PerPage:     10,
			PageOptions: []int{10, 25, 50, 100},
		},
		Presets: PresetsConfig{
			Store: PresetStoreFile,
			Path:  "data/presets.json",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Export: ExportConfig{
			Directory: "exports",
			PageSize:  1000,
		},
	}
}

var envKeys = []string{
	"database.driver",
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.dbname",
	"database.sslmode",
	"database.sqlite_path",
	"tables.dir",
	"tables.per_page",
	"tables.page_options",
	"presets.store",
	"presets.path",
	"server.addr",
	"server.allowed_origins",
	"export.directory",
	"export.page_size",
}

// Load reads config.yaml from configPath and overlays environment
// variables such as TABLEKIT_DATABASE_HOST on the defaults.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("TABLEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		log.Printf("[config] no config.yaml found in %s, using defaults and env vars", configPath)
	} else {
		log.Printf("[config] loaded %s", v.ConfigFileUsed())
	}

	setString(v, "database.driver", &cfg.Database.Driver)
	setString(v, "database.host", &cfg.Database.Host)
	setInt(v, "database.port", &cfg.Database.Port)
	setString(v, "database.user", &cfg.Database.User)
	setString(v, "database.password", &cfg.Database.Password)
	setString(v, "database.dbname", &cfg.Database.DBName)
	setString(v, "database.sslmode", &cfg.Database.SSLMode)
	setString(v, "database.sqlite_path", &cfg.Database.SQLitePath)

	setString(v, "tables.dir", &cfg.Tables.Dir)
	setInt(v, "tables.per_page", &cfg.Tables.PerPage)
	if v.IsSet("tables.page_options") {
		cfg.Tables.PageOptions = v.GetIntSlice("tables.page_options")
	}

	setString(v, "presets.store", &cfg.Presets.Store)
	setString(v, "presets.path", &cfg.Presets.Path)

	setString(v, "server.addr", &cfg.Server.Addr)
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	setString(v, "export.directory", &cfg.Export.Directory)
	setInt(v, "export.page_size", &cfg.Export.PageSize)

	return cfg, nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}
