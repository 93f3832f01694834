package configuration

import (
	"fmt"
	"os"
	"strconv"

	"media-ops/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	YouTube     YouTube     `json:"youtube"`
	Upload      Upload      `json:"upload"`
	Sweep       Sweep       `json:"sweep"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type YouTube struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	ChannelID    string   `json:"channelId"`
	Scopes       []string `json:"scopes"`
}

// Upload tunes the transfer loop and the orchestrator's worker pool.
type Upload struct {
	ChunkSizeMB      int    `json:"chunkSizeMB"`
	MaxAttempts      int    `json:"maxAttempts"`
	Workers          int    `json:"workers"`
	QueueDepth       int    `json:"queueDepth"`
	RetentionMinutes int    `json:"retentionMinutes"`
	SourceDir        string `json:"sourceDir"`
	SourceBaseURL    string `json:"sourceBaseURL"`
}

// Sweep configures the scheduled-upload sweeper.
type Sweep struct {
	Secret          string `json:"secret"`
	IntervalMinutes int    `json:"intervalMinutes"`
	BatchLimit      int    `json:"batchLimit"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initDatabase(&C)
	initUpload(&C)
	initSweep(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	if C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = os.Getenv("MONGO_HOST")
	}
	if C.Database.Mongo.Port == "" {
		if v := os.Getenv("MONGO_PORT"); v != "" {
			C.Database.Mongo.Port = v
		} else {
			C.Database.Mongo.Port = "27017"
		}
	}
	if C.Database.Mongo.User == "" {
		C.Database.Mongo.User = os.Getenv("MONGO_USER")
	}
	if C.Database.Mongo.Password == "" {
		C.Database.Mongo.Password = os.Getenv("MONGO_PASSWORD")
	}
	if C.Database.Mongo.Name == "" {
		if v := os.Getenv("MONGO_DB_NAME"); v != "" {
			C.Database.Mongo.Name = v
		} else {
			C.Database.Mongo.Name = "mediaops"
		}
	}
}

func initUpload(C *Config) {
	if C.Upload.ChunkSizeMB == 0 {
		C.Upload.ChunkSizeMB = 8
	}
	if C.Upload.MaxAttempts == 0 {
		C.Upload.MaxAttempts = 4
	}
	if C.Upload.Workers == 0 {
		C.Upload.Workers = 3
	}
	if C.Upload.QueueDepth == 0 {
		C.Upload.QueueDepth = 64
	}
	if C.Upload.RetentionMinutes == 0 {
		C.Upload.RetentionMinutes = 60
	}
	if v := os.Getenv("UPLOAD_SOURCE_DIR"); v != "" {
		C.Upload.SourceDir = v
	}
	if v := os.Getenv("UPLOAD_SOURCE_BASE_URL"); v != "" {
		C.Upload.SourceBaseURL = v
	}
	if C.Upload.SourceDir == "" && C.Upload.SourceBaseURL == "" {
		C.Upload.SourceDir = "videos"
	}
}

func initSweep(C *Config) {
	if v := os.Getenv("SWEEP_SECRET"); v != "" {
		C.Sweep.Secret = v
	}
	if C.Sweep.BatchLimit == 0 {
		C.Sweep.BatchLimit = 25
	}
	if v := os.Getenv("SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			C.Sweep.IntervalMinutes = n
		}
	}
	if C.Sweep.Secret == "" {
		logger.GetLogger().Warn("Sweep.Secret not set; /scheduled-uploads/process will reject all callers.")
	}
}
