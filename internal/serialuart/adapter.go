// Package serialuart adapts a real serial device to pkg/imc.UART. It
// stands in for the hardware UART + DMA + idle-line-IRQ peripheral the
// original protocol core was written against: a dedicated goroutine
// reads one byte at a time (the ISR-context stand-in), a software timer
// reset on every byte detects line idleness, and writes go straight to
// the port.
//
// Grounded on pkg/usock/usock.go's New/readLoop/processByte shape and
// peripheral/UartBase.hpp's handleTransmissionComplete/generateIdleLine.
package serialuart

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Config holds the parameters needed to open the underlying serial
// port and size its idle-line detector.
type Config struct {
	Device   string
	BaudRate int
	// IdleGap is how long the line must be quiet before a byte stream
	// is considered a completed frame, and also the inter-frame gap
	// GenerateIdleLine waits out before releasing a staged send.
	IdleGap time.Duration
}

// serialPort is the subset of go.bug.st/serial.Port and
// github.com/tarm/serial.Port that Adapter actually drives. Both
// libraries' port types satisfy it, which lets a single Adapter
// implementation back either one — see OpenTarm in adapter_tarm.go.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Adapter implements imc.UART over a serialPort.
type Adapter struct {
	port serialPort
	cfg  Config

	stopCh chan struct{}
	wg     sync.WaitGroup

	idleTimer *time.Timer
	idleMu    sync.Mutex

	sendMu    sync.Mutex
	receiveMu sync.Mutex

	onByte  func(byte)
	onIdle  func()
	onTx    func()
	onError func(byte)

	txBusy bool
	txMu   sync.Mutex
}

// newAdapter wraps an already-opened serialPort and starts the reader
// goroutine. Shared by Open (go.bug.st/serial) and OpenTarm
// (github.com/tarm/serial, adapter_tarm.go).
func newAdapter(port serialPort, cfg Config) *Adapter {
	a := &Adapter{
		port:   port,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	a.idleTimer = time.AfterFunc(cfg.IdleGap, a.fireIdle)
	a.idleTimer.Stop()

	a.wg.Add(1)
	go a.readLoop()

	return a
}

// Open opens the configured serial device over go.bug.st/serial and
// starts the reader goroutine. The returned Adapter has no callbacks
// registered yet; callers normally hand it straight to imc.NewModule's
// collaborators via NewReceiver/NewSender, which register what they
// need.
func Open(cfg Config) (*Adapter, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("serialuart: open %s: %w", cfg.Device, err)
	}
	return newAdapter(port, cfg), nil
}

// Close stops the reader goroutine and closes the underlying port.
func (a *Adapter) Close() error {
	close(a.stopCh)
	a.wg.Wait()
	a.idleTimer.Stop()
	return a.port.Close()
}

func (a *Adapter) readLoop() {
	defer a.wg.Done()

	buf := make([]byte, 1)
	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		n, err := a.port.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Printf("serialuart: read error: %v", err)
				if a.onError != nil {
					a.onError(0)
				}
			}
			time.Sleep(time.Millisecond)
			continue
		}
		if n == 0 {
			continue
		}

		a.idleMu.Lock()
		a.idleTimer.Reset(a.cfg.IdleGap)
		a.idleMu.Unlock()

		b := buf[0]
		a.receiveMu.Lock()
		cb := a.onByte
		a.receiveMu.Unlock()
		if cb != nil {
			cb(b)
		}
	}
}

func (a *Adapter) fireIdle() {
	a.receiveMu.Lock()
	cb := a.onIdle
	a.receiveMu.Unlock()
	if cb != nil {
		cb()
	}
}

// Send implements imc.UART. It starts the write on its own goroutine
// and returns at once; when the write returns, that goroutine clears
// the busy flag and invokes the OnTxComplete callback, since a real
// USB-serial adapter gives no separate hardware completion interrupt.
func (a *Adapter) Send(data []byte) bool {
	a.txMu.Lock()
	if a.txBusy {
		a.txMu.Unlock()
		return false
	}
	a.txBusy = true
	a.txMu.Unlock()

	go func() {
		if _, err := a.port.Write(data); err != nil {
			log.Printf("serialuart: write error: %v", err)
		}
		a.txMu.Lock()
		a.txBusy = false
		cb := a.onTx
		a.txMu.Unlock()
		if cb != nil {
			cb()
		}
	}()
	return true
}

// IsTxBusy implements imc.UART.
func (a *Adapter) IsTxBusy() bool {
	a.txMu.Lock()
	defer a.txMu.Unlock()
	return a.txBusy
}

// GenerateIdleLine implements imc.UART: it waits out the configured
// idle gap and then invokes onElapsed, letting the Sender drain any
// staged frame only once the line has genuinely gone quiet.
func (a *Adapter) GenerateIdleLine(onElapsed func()) {
	time.AfterFunc(a.cfg.IdleGap, onElapsed)
}

// SuspendSend/ResumeSend implement imc.UART, standing in for the
// original's UartSendLock IRQ mask.
func (a *Adapter) SuspendSend()  { a.sendMu.Lock() }
func (a *Adapter) ResumeSend()   { a.sendMu.Unlock() }

// SuspendReceive/ResumeReceive implement imc.UART, standing in for the
// original's UartReceiveLock IRQ mask.
func (a *Adapter) SuspendReceive() { a.receiveMu.Lock() }
func (a *Adapter) ResumeReceive()  { a.receiveMu.Unlock() }

// OnByteReceived implements imc.UART.
func (a *Adapter) OnByteReceived(fn func(b byte)) {
	a.receiveMu.Lock()
	a.onByte = fn
	a.receiveMu.Unlock()
}

// OnIdleDetected implements imc.UART.
func (a *Adapter) OnIdleDetected(fn func()) {
	a.receiveMu.Lock()
	a.onIdle = fn
	a.receiveMu.Unlock()
}

// OnTxComplete implements imc.UART.
func (a *Adapter) OnTxComplete(fn func()) {
	a.txMu.Lock()
	a.onTx = fn
	a.txMu.Unlock()
}

// OnRxError implements imc.UART.
func (a *Adapter) OnRxError(fn func(code byte)) {
	a.receiveMu.Lock()
	a.onError = fn
	a.receiveMu.Unlock()
}
