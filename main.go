package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"PSocial/global"
	"PSocial/logger"
	mid "PSocial/middleware"
	"PSocial/module/message"
	"PSocial/module/notification"
	"PSocial/service/realtime"
	"PSocial/service/storage"
	"PSocial/tools/security"
)

// jwtVerifier 把 tools/security 适配成实时层的握手校验器。
type jwtVerifier struct {
	opts security.Options
}

func (v jwtVerifier) VerifyUser(token string) (string, error) {
	return security.VerifyUser(v.opts, token)
}

func main() {
	// 1) 配置
	if err := global.Load(); err != nil {
		log.Fatalf("load config: %v", err)
	}
	conf := global.Global

	// 2) 在线状态镜像（可选）
	var mirror realtime.PresenceMirror
	if conf.RedisAddr != "" {
		m, err := storage.NewMirror(storage.Config{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
			TTL:      conf.PresenceTTL,
		})
		if err != nil {
			// 镜像只是加速器，连不上就不用
			logger.Warnf("presence mirror disabled: %v", err)
		} else {
			mirror = m
			defer func() { _ = m.Close() }()
		}
	}

	// 3) 落库（可选，未配置时用内存兜底）
	msgStore, ntfStore := buildStores(conf)

	// 4) 实时网关
	verifier := jwtVerifier{opts: security.Options{
		Secret: []byte(conf.JWTSecret),
		Alg:    conf.JWTAlg,
	}}
	gw := realtime.NewGateway(verifier, mirror, realtime.Options{
		SendQueueSize: conf.SendQueueSize,
		WriteTimeout:  conf.WriteTimeout,
		PingInterval:  conf.PingInterval,
		PongWait:      conf.PongWait,
		FanoutWorkers: conf.FanoutWorkers,
		FanoutQueue:   conf.FanoutQueue,
	})

	defer gw.Close()

	// 5) REST 写路径拿到的是 Bridge 接口，不是网关本体
	msgHandler := message.NewHandler(msgStore, gw)
	ntfHandler := notification.NewHandler(ntfStore, gw)

	// 6) HTTP + WebSocket
	r := gin.New()
	r.Use(gin.Recovery(), mid.Origin())

	r.GET("/ws", gw.HandleWS) // ws://host/ws?token=<jwt>

	api := r.Group("/api")
	api.POST("/conversations/:conversationId/messages", msgHandler.Send)
	api.GET("/conversations/:conversationId/messages", msgHandler.List)
	api.POST("/users/:userId/notifications", ntfHandler.Create)
	api.GET("/users/:userId/notifications", ntfHandler.List)
	api.GET("/presence/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": gw.ListOnlineUsers()})
	})
	api.GET("/presence/users/:userId", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId": c.Param("userId"),
			"online": gw.IsUserOnline(c.Param("userId")),
		})
	})

	addr := fmt.Sprintf(":%d", conf.Port)
	logger.Infof("listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("http server: %v", err)
	}
}

func buildStores(conf global.AppConfig) (message.Store, notification.Store) {
	if conf.MongoURI == "" {
		logger.Infof("mongo not configured, using in-memory stores")
		return message.NewMemoryStore(), notification.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	if err := cli.Ping(ctx, nil); err != nil {
		log.Fatalf("mongo ping: %v", err)
	}
	db := cli.Database(conf.MongoDatabase)
	return message.NewMongoStore(db), notification.NewMongoStore(db)
}
