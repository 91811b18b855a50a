// cmd/historian/main.go is an asynchronous service that pops match
// action records off a Redis queue and persists them to PostgreSQL.
// It also marks matches abandoned after a period of inactivity.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/lastcard-club/lastcard/internal/cache"
	"github.com/lastcard-club/lastcard/internal/database"
)

// historian drains the action queue into the match_actions table.
type historian struct {
	redisClient *redis.Client
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration

	// lastActivity maps match ID -> time of last observed action.
	lastActivity sync.Map

	batchMu  sync.Mutex
	batch    []cache.MatchActionRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

func newHistorian() *historian {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("MATCH_INACTIVITY_TIMEOUT_SEC", 600)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &historian{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.MatchActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

func (h *historian) run() {
	database.ConnectDB()

	go h.readRedisLoop()
	go h.inactivityLoop()

	log.Println("lastcard-historian started")
	<-h.ctx.Done()
	log.Println("lastcard-historian shutting down")
}

// readRedisLoop pops records off the queue with BLPop, batching them
// and flushing either on size or on the flush timer.
func (h *historian) readRedisLoop() {
	ticker := time.NewTicker(h.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			h.flushBatch()

		default:
			res, err := h.redisClient.BLPop(h.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("blpop: %v", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record cache.MatchActionRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid action record: %v", err)
				continue
			}

			h.lastActivity.Store(record.MatchID, time.Now())
			h.appendToBatch(record)
		}
	}
}

func (h *historian) appendToBatch(record cache.MatchActionRecord) {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()

	h.batch = append(h.batch, record)
	if len(h.batch) >= h.batchSize {
		h.flushBatchLocked()
	}
}

func (h *historian) flushBatch() {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	h.flushBatchLocked()
}

// flushBatchLocked writes the pending batch to the database. Callers
// must hold batchMu.
func (h *historian) flushBatchLocked() {
	if len(h.batch) == 0 {
		return
	}
	pending := make([]cache.MatchActionRecord, len(h.batch))
	copy(pending, h.batch)
	h.batch = h.batch[:0]

	ctx := context.Background()
	for _, rec := range pending {
		err := database.InsertMatchAction(ctx, rec.MatchID, rec.ActionIndex,
			rec.ActorUserID, rec.ActionType, rec.ActionPayload, rec.Timestamp)
		if err != nil {
			log.Printf("insert action %d for match %s: %v", rec.ActionIndex, rec.MatchID, err)
		}
	}
	log.Printf("flushed %d actions", len(pending))
}

// inactivityLoop marks matches abandoned once no action has been seen
// for the configured threshold.
func (h *historian) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			h.lastActivity.Range(func(key, val interface{}) bool {
				matchID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > h.inactivity {
					h.markMatchAbandoned(matchID)
					h.lastActivity.Delete(matchID)
				}
				return true
			})
		}
	}
}

func (h *historian) markMatchAbandoned(matchID uuid.UUID) {
	ctx := context.Background()
	q := `
		UPDATE matches
		SET status = 'abandoned'
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := database.DB.Exec(ctx, q, matchID); err != nil {
		log.Printf("failed to mark match %v abandoned: %v", matchID, err)
		return
	}
	log.Printf("marked match %v abandoned after inactivity", matchID)
}

func (h *historian) stop() {
	h.cancelFn()
}

func main() {
	h := newHistorian()
	go h.run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	h.stop()
	log.Println("historian shutdown complete")
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
