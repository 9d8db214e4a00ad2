package main

import (
	"fmt"
	"net/http"

	"CampusPoker/config"
	"CampusPoker/internal/game/manager"
	"CampusPoker/internal/identity"
	"CampusPoker/internal/ledger"
	"CampusPoker/internal/middleware"
	"CampusPoker/internal/storage"
	"CampusPoker/internal/utils"
	"CampusPoker/internal/websocket"

	"github.com/coder/quartz"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()
	utils.Init()

	gameCfg := manager.Config{
		MaxSeats:    config.C.Game.MaxSeats,
		SmallBlind:  config.C.Game.SmallBlind,
		BigBlind:    config.C.Game.BigBlind,
		MinBuyIn:    config.C.Game.MinBuyIn,
		TurnSeconds: config.C.Game.TurnSeconds,
	}

	//-------------------------------------------------------
	// 1. stores: redis queue, postgres coin ledger
	//-------------------------------------------------------
	var queue manager.Repo
	if err := storage.InitRedis(
		config.C.Redis.Addr,
		config.C.Redis.Password,
		config.C.Redis.DB,
	); err != nil {
		utils.Print.Warn("redis unavailable, queue falls back to memory", "err", err)
		queue = manager.NewMemoryRepo()
	} else {
		tier := fmt.Sprintf("%d-%d", gameCfg.SmallBlind, gameCfg.BigBlind)
		queue = manager.NewRedisRepo(storage.Rdb, tier, 300)
	}

	var coins ledger.Ledger
	if dsn := config.C.Database.DSN; dsn != "" {
		if err := storage.InitPostgres(dsn); err != nil {
			utils.Error.Fatalf("postgres init failed: %v", err)
		}
		coins = ledger.NewPostgresLedger(storage.DB)
	} else {
		utils.Print.Warn("no database DSN, coin ledger is in-memory")
		coins = ledger.NewMemoryLedger()
	}

	//-------------------------------------------------------
	// 2. hub, then the table registry on top of it
	//-------------------------------------------------------
	hub := websocket.NewHub()
	go hub.Run()

	reg := manager.NewRegistry(gameCfg, queue, hub, coins, quartz.NewReal(), utils.Print)
	reg.Start()
	defer reg.Stop()

	hub.OnIncoming = reg.HandleIncoming
	hub.OnConnect = func(userID string) {
		// resync a (re)connecting player with their table
		if eng := reg.TableOf(userID); eng != nil {
			go eng.Watch(userID)
		}
	}
	hub.OnDisconnect = func(userID string) {
		if eng := reg.TableOf(userID); eng != nil {
			go eng.Unwatch(userID)
		}
	}

	//-------------------------------------------------------
	// 3. http surface
	//-------------------------------------------------------
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	verifier := identity.NewJWTVerifier([]byte(config.C.JWT.Secret))
	auth := r.Group("/", middleware.JwtAuthMiddleware(verifier))
	{
		auth.GET("/ws", websocket.ServeWS(hub))

		qh := manager.NewHandler(reg)
		auth.POST("/queue/join", qh.Join)
		auth.POST("/queue/cancel", qh.Cancel)
	}

	utils.Info.Printf("Server running on %s", config.C.Server.Port)
	if err := r.Run(config.C.Server.Port); err != nil {
		utils.Error.Fatalf("server exited: %v", err)
	}
}
