package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Admin      AdminConfig      `yaml:"admin"`
	Orders     OrdersConfig     `yaml:"orders"`
	Images     ImagesConfig     `yaml:"images"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	MaxUploadMB int64         `yaml:"max_upload_mb" env-default:"10"`
}

// StorageConfig выбирает хранилище каталога, пользователей и заказов
type StorageConfig struct {
	Driver string `yaml:"driver" env-default:"postgres"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Name     string `yaml:"name"`
}

// MongoConfig настройки документной БД
type MongoConfig struct {
	URI     string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Name    string        `yaml:"name" env-default:"shop"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// RedisConfig хранилище корзин
type RedisConfig struct {
	Address  string        `yaml:"address" env-default:"localhost:6379"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env-default:"0"`
	CartTTL  time.Duration `yaml:"cart_ttl" env-default:"720h"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET"`
	TokenTTL int    `yaml:"token_ttl" env-default:"10080"`
}

// AdminConfig учётные данные администратора
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"-" env:"ADMIN_PASSWORD"`
}

// OrdersConfig параметры оформления заказа
type OrdersConfig struct {
	ShippingFee   int64  `yaml:"shipping_fee" env-default:"10000"`
	PaymentMethod string `yaml:"payment_method" env-default:"COD"`
}

// ImagesConfig хостинг изображений товаров
type ImagesConfig struct {
	CloudName   string        `yaml:"cloud_name"`
	APIKey      string        `yaml:"-" env:"CLOUDINARY_API_KEY"`
	APISecret   string        `yaml:"-" env:"CLOUDINARY_API_SECRET"`
	Folder      string        `yaml:"folder" env-default:"products"`
	MaxFailures uint32        `yaml:"max_failures" env-default:"5"`
	OpenTimeout time.Duration `yaml:"open_timeout" env-default:"30s"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
