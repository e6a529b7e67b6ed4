package global

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"PSocial/logger"
	"PSocial/tools/ids"
)

type AppConfig struct {
	NodeID    int64  `envconfig:"NODE_ID" default:"1"`      // 雪花节点ID
	Port      int    `envconfig:"PORT" default:"8080"`      // http 启动端口
	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	JWTAlg    string `envconfig:"JWT_ALG" default:"HS256"`

	// 实时层参数
	SendQueueSize int           `envconfig:"SEND_QUEUE_SIZE" default:"256"` // 每连接发送队列
	WriteTimeout  time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s"`
	PingInterval  time.Duration `envconfig:"PING_INTERVAL" default:"25s"`
	PongWait      time.Duration `envconfig:"PONG_WAIT" default:"60s"`
	FanoutWorkers int           `envconfig:"FANOUT_WORKERS" default:"4"`
	FanoutQueue   int           `envconfig:"FANOUT_QUEUE" default:"1024"`

	// 外部存储（留空则关闭对应能力）
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""` // 在线状态镜像
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	PresenceTTL   time.Duration `envconfig:"PRESENCE_TTL" default:"2m"`
	MongoURI      string        `envconfig:"MONGO_URI" default:""` // 消息/通知落库
	MongoDatabase string        `envconfig:"MONGO_DATABASE" default:"psocial"`
}

var Global = AppConfig{}

// Load 读取 .env + 环境变量（前缀 PS_），并初始化ID生成器。
func Load() error {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("no .env file loaded: %v", err)
	}
	if err := envconfig.Process("ps", &Global); err != nil {
		return err
	}
	ids.SetNodeID(Global.NodeID)
	return nil
}
