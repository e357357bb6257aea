//go:build imc_tarmserial

// This file provides an alternate way to open an Adapter over
// github.com/tarm/serial, the library the teacher's own pkg/usock
// imports directly, instead of go.bug.st/serial. It is built only
// under the imc_tarmserial tag so the default build stays on
// go.bug.st/serial; Adapter's actual UART logic (readLoop, fireIdle,
// Send, the idle-gap/staged-send handling) is entirely shared with
// adapter.go through the serialPort interface and newAdapter.
package serialuart

import (
	"fmt"

	"github.com/tarm/serial"
)

// OpenTarm opens the configured device through tarm/serial, mirroring
// pkg/usock.New's serial.Config construction.
func OpenTarm(cfg Config) (*Adapter, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.BaudRate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("serialuart: open %s (tarm): %w", cfg.Device, err)
	}
	return newAdapter(port, cfg), nil
}
