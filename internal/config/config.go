// Package config holds the daemon's process-level configuration,
// following cmd/bluetooth-service/main.go's flag.String/flag.Int
// package-level var-block style.
package config

import (
	"flag"
	"time"

	"github.com/librescoot/imc-link/pkg/imc"
)

// Config is the fully-parsed daemon configuration.
type Config struct {
	SerialDevice string
	BaudRate     int
	IdleGap      time.Duration

	RedisAddr string
	RedisPass string
	RedisDB   int

	Role imc.Role

	SlaveHandshakeInterval time.Duration
	SlaveKeepAliveInterval time.Duration
	SlaveAckTimeout        time.Duration
	MasterCommTimeout      time.Duration
}

// Parse defines and parses the daemon's flags, returning the
// assembled Config.
func Parse() Config {
	serialDevice := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baudRate := flag.Int("baud", 115200, "Serial baud rate")
	idleGapMs := flag.Int("idle-gap-ms", 10, "Idle-line gap in milliseconds")

	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	redisPass := flag.String("redis-pass", "", "Redis password")
	redisDB := flag.Int("redis-db", 0, "Redis database number")

	role := flag.String("role", "slave", "Link role: master or slave")

	handshakeMs := flag.Int("handshake-interval-ms", 100, "Slave Handshake re-send interval, milliseconds")
	keepAliveMs := flag.Int("keepalive-interval-ms", 100, "Slave KeepAlive interval, milliseconds")
	ackTimeoutMs := flag.Int("ack-timeout-ms", 300, "Slave Acknowledge timeout, milliseconds")
	commTimeoutMs := flag.Int("comm-timeout-ms", 300, "Master communication timeout, milliseconds")

	flag.Parse()

	r := imc.RoleSlave
	if *role == "master" {
		r = imc.RoleMaster
	}

	return Config{
		SerialDevice: *serialDevice,
		BaudRate:     *baudRate,
		IdleGap:      time.Duration(*idleGapMs) * time.Millisecond,

		RedisAddr: *redisAddr,
		RedisPass: *redisPass,
		RedisDB:   *redisDB,

		Role: r,

		SlaveHandshakeInterval: time.Duration(*handshakeMs) * time.Millisecond,
		SlaveKeepAliveInterval: time.Duration(*keepAliveMs) * time.Millisecond,
		SlaveAckTimeout:        time.Duration(*ackTimeoutMs) * time.Millisecond,
		MasterCommTimeout:      time.Duration(*commTimeoutMs) * time.Millisecond,
	}
}

// Settings assembles an imc.Settings from the parsed Config.
func (c Config) Settings() imc.Settings {
	s := imc.DefaultSettings(c.Role)
	s.SlaveHandshakeIntervalUs = uint32(c.SlaveHandshakeInterval.Microseconds())
	s.SlaveKeepAliveIntervalUs = uint32(c.SlaveKeepAliveInterval.Microseconds())
	s.SlaveAckTimeoutUs = uint32(c.SlaveAckTimeout.Microseconds())
	s.MasterCommunicationTimeoutUs = uint32(c.MasterCommTimeout.Microseconds())
	return s
}
