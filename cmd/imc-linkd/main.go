// Command imc-linkd runs the IMC link as a daemon: it opens a serial
// device, drives the protocol core on a fixed tick, and bridges
// recipient traffic to Redis. Structure follows
// cmd/bluetooth-service/main.go: flags, Redis connect, adapter
// connect, signal handling, graceful shutdown.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/librescoot/imc-link/internal/bridge"
	"github.com/librescoot/imc-link/internal/config"
	"github.com/librescoot/imc-link/internal/serialuart"
	"github.com/librescoot/imc-link/pkg/imc"
	"github.com/librescoot/imc-link/pkg/imc/crc32arc"
	redisclient "github.com/librescoot/imc-link/pkg/redis"
)

const tickInterval = 5 * time.Millisecond

func main() {
	cfg := config.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting IMC link daemon")
	log.Printf("Serial device: %s", cfg.SerialDevice)
	log.Printf("Baud rate: %d", cfg.BaudRate)
	log.Printf("Redis address: %s", cfg.RedisAddr)
	log.Printf("Role: %v", cfg.Role)

	redisClient, err := redisclient.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Printf("Connected to Redis")

	adapter, err := serialuart.Open(serialuart.Config{
		Device:   cfg.SerialDevice,
		BaudRate: cfg.BaudRate,
		IdleGap:  cfg.IdleGap,
	})
	if err != nil {
		log.Fatalf("Failed to open serial device: %v", err)
	}
	defer adapter.Close()
	log.Printf("Opened serial device")

	module := imc.NewModule(adapter, crc32arc.New(), cfg.Settings())

	br := bridge.New(redisClient)
	br.RegisterWith(module)
	go br.WatchOutbound()
	go br.PublishLiveness(100 * time.Millisecond)

	stopTicker := make(chan struct{})
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		timer := imc.NewSystemTimer()
		var lastUs uint64
		for {
			select {
			case <-stopTicker:
				return
			case <-ticker.C:
				nowUs := timer.Now()
				dt := uint32(nowUs - lastUs)
				lastUs = nowUs
				module.Update(dt)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	close(stopTicker)
	br.Stop()
	log.Printf("Shutting down...")
}
