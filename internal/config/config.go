package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	WebRTC    WebRTCConfig    `yaml:"webrtc"`
	Rooms     RoomsConfig     `yaml:"rooms"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Storage   StorageConfig   `yaml:"storage"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-default:""`
}

type WebRTCConfig struct {
	STUNServers    []string `yaml:"stun_servers" env:"STUN_SERVERS" env-default:""`
	TURNServers    []string `yaml:"turn_servers" env:"TURN_SERVERS" env-default:""`
	TURNUsername   string   `yaml:"turn_username" env:"TURN_USERNAME" env-default:""`
	TURNCredential string   `yaml:"turn_credential" env:"TURN_CREDENTIAL" env-default:""`
}

type RoomsConfig struct {
	Capacity int `yaml:"capacity" env:"ROOM_CAPACITY" env-default:"10"`
}

type WebSocketConfig struct {
	ReadLimit  int64         `yaml:"read_limit" env-default:"65536"`
	WriteWait  time.Duration `yaml:"write_wait" env-default:"10s"`
	PongWait   time.Duration `yaml:"pong_wait" env-default:"60s"`
	SendBuffer int           `yaml:"send_buffer" env-default:"64"`
}

type StorageConfig struct {
	Driver          string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	DSN             string `yaml:"dsn" env:"DATABASE_DSN" env-default:""`
	MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI" env-default:""`
	MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE" env-default:"conference"`
	MongoCollection string `yaml:"mongo_collection" env:"MONGO_COLLECTION" env-default:"meetings"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.Rooms.Capacity <= 0 {
		c.Rooms.Capacity = 10
	}
	if c.WebSocket.ReadLimit <= 0 {
		c.WebSocket.ReadLimit = 64 * 1024
	}
	if c.WebSocket.WriteWait <= 0 {
		c.WebSocket.WriteWait = 10 * time.Second
	}
	if c.WebSocket.PongWait <= 0 {
		c.WebSocket.PongWait = 60 * time.Second
	}
	if c.WebSocket.SendBuffer <= 0 {
		c.WebSocket.SendBuffer = 64
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
}
