// Command mauserver wires mau's SessionManager to a gin REST API and
// a gorilla/websocket room transport, adapted from the teacher's
// cmd/game-server/main.go (retrieval pack) graceful-shutdown and
// router-setup shape.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"

	"mau/internal/analytics/clickhouse"
	"mau/internal/anticheat"
	"mau/internal/journal/kafka"
	"mau/internal/mau"
	"mau/internal/store/postgres"
	"mau/internal/transport/ws"
)

func main() {
	sessions := mau.NewSessionManager()

	kafkaCfg := kafka.Config{
		Brokers:        envList("MAU_KAFKA_BROKERS", "localhost:9092"),
		Topic:          envOr("MAU_KAFKA_TOPIC", "mau.game.events"),
		MaxRetries:     5,
		RetryBackoff:   100 * time.Millisecond,
		FlushFrequency: 500 * time.Millisecond,
		FlushMessages:  50,
		RequiredAcks:   sarama.WaitForLocal,
		Compression:    sarama.CompressionSnappy,
		BatchSize:      100,
	}

	scorer := anticheat.NewScorer(anticheat.DefaultConfig(), 50)

	var pgStore *postgres.Store
	if dsn := os.Getenv("MAU_POSTGRES_DSN"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("mauserver: open postgres: %v", err)
		}
		pgStore = postgres.New(db)
		if err := pgStore.CreateTables(context.Background()); err != nil {
			log.Fatalf("mauserver: create postgres tables: %v", err)
		}
	}

	var analytics *clickhouse.Analytics
	if host := os.Getenv("MAU_CLICKHOUSE_HOST"); host != "" {
		var err error
		analytics, err = clickhouse.New(context.Background(), clickhouse.Config{
			Host:         host,
			Port:         9000,
			Database:     envOr("MAU_CLICKHOUSE_DATABASE", "mau"),
			Username:     envOr("MAU_CLICKHOUSE_USERNAME", "default"),
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnTimeout:  5 * time.Second,
		})
		if err != nil {
			log.Printf("mauserver: clickhouse unavailable, continuing without analytics: %v", err)
			analytics = nil
		} else if err := analytics.CreateTables(context.Background()); err != nil {
			log.Fatalf("mauserver: create clickhouse tables: %v", err)
		}
	}

	journalFactory := func() mau.Journal {
		kj, err := kafka.New(kafkaCfg)
		if err != nil {
			log.Printf("mauserver: kafka journal unavailable, falling back to in-memory: %v", err)
			return mau.NewRecordingJournal()
		}
		if analytics == nil {
			return kj
		}
		return multiJournal{primary: kj, mirror: clickhouse.NewJournal(analytics)}
	}

	wsServer := ws.New(sessions, journalFactory, scorer)

	router := gin.Default()
	router.GET("/ws", func(c *gin.Context) { wsServer.HandleConn(c.Writer, c.Request) })

	router.GET("/api/rooms/:roomId", func(c *gin.Context) {
		roomID := c.Param("roomId")
		g := sessions.GetGame(roomID)
		if g == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": mau.ErrNoGameInChat.Error()})
			return
		}
		c.JSON(http.StatusOK, g.Snapshot())
	})

	router.POST("/api/rooms", func(c *gin.Context) {
		var req struct {
			RoomID string `json:"room_id"`
			UserID string `json:"user_id"`
			Name   string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		g, err := sessions.Create(req.RoomID, mau.BaseUser{UserID: req.UserID, Name: req.Name}, journalFactory())
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, g.Snapshot())
	})

	router.GET("/api/players/:userId/velocity", func(c *gin.Context) {
		userID := c.Param("userId")
		res := scorer.Score(userID)
		anticheat.RecordResult(res)
		if pgStore != nil {
			roomID, _ := sessions.RoomOf(userID)
			_ = pgStore.RecordResult(c.Request.Context(), roomID, res.PlayerID, int64(res.SampleCount), res, time.Now())
		}
		c.JSON(http.StatusOK, res)
	})

	srv := &http.Server{
		Addr:    ":" + envOr("MAU_SERVER_PORT", "8088"),
		Handler: router,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("mauserver: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("mauserver: shutdown error: %v", err)
		}
		if analytics != nil {
			_ = analytics.Close()
		}
	}()

	log.Printf("mauserver: listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("mauserver: %v", err)
	}
}

// multiJournal fans a game's events out to a primary delivery journal
// (Kafka) and a secondary analytics mirror (ClickHouse), preserving
// the "Add never suspends" contract by delegating both halves'
// buffering to their own Add implementations.
type multiJournal struct {
	primary mau.Journal
	mirror  mau.Journal
}

func (m multiJournal) Add(event mau.Event) {
	m.primary.Add(event)
	m.mirror.Add(event)
}

func (m multiJournal) Send(ctx context.Context) error {
	if err := m.primary.Send(ctx); err != nil {
		return err
	}
	return m.mirror.Send(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key, fallback string) []string {
	v := envOr(key, fallback)
	return []string{v}
}
