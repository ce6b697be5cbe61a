// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/headtrack/internal/imu"
)

// Serial IMU boards stream one proprietary NMEA sentence per reading:
//
//	$PHTA,<ax>,<ay>,<az>*CS   accelerometer, m/s²
//	$PHTM,<mx>,<my>,<mz>*CS   magnetometer, µT
const (
	TypeAccelSentence = "HTA"
	TypeMagSentence   = "HTM"
)

// VectorSentence is a decoded $PHTA / $PHTM sentence.
type VectorSentence struct {
	nmea.BaseSentence
	Sensor imu.SensorType
	X, Y, Z float64
}

func init() {
	nmea.MustRegisterParser(TypeAccelSentence, vectorParser(imu.Accelerometer))
	nmea.MustRegisterParser(TypeMagSentence, vectorParser(imu.Magnetometer))
}

func vectorParser(typ imu.SensorType) nmea.ParserFunc {
	return func(s nmea.BaseSentence) (nmea.Sentence, error) {
		p := nmea.NewParser(s)
		v := VectorSentence{
			BaseSentence: s,
			Sensor:       typ,
			X:            p.Float64(0, "x"),
			Y:            p.Float64(1, "y"),
			Z:            p.Float64(2, "z"),
		}
		return v, p.Err()
	}
}

// ParseLine decodes one line from a serial IMU board. ok is false for lines
// that are not vector sentences (other NMEA traffic, blank lines).
func ParseLine(line string, at time.Time) (s imu.Sample, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return imu.Sample{}, false, nil
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		return imu.Sample{}, false, err
	}
	v, isVector := sentence.(VectorSentence)
	if !isVector {
		return imu.Sample{}, false, nil
	}
	return imu.Sample{
		Type:   v.Sensor,
		Values: imu.Vector{X: v.X, Y: v.Y, Z: v.Z},
		Time:   at,
	}, true, nil
}

// FormatSentence renders a sample as the sentence a board would emit.
func FormatSentence(s imu.Sample) string {
	prefix := "PHTA"
	if s.Type == imu.Magnetometer {
		prefix = "PHTM"
	}
	body := fmt.Sprintf("%s,%.4f,%.4f,%.4f", prefix, s.Values.X, s.Values.Y, s.Values.Z)
	return fmt.Sprintf("$%s*%s", body, nmea.Checksum(body))
}

const stopTimeout = 2 * time.Second

// SerialFeed reads vector sentences from a serial port.
type SerialFeed struct {
	opts serial.OpenOptions
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu   sync.Mutex
	port io.ReadWriteCloser
	done chan struct{}
}

func NewSerialFeed(portName string, baudRate int) *SerialFeed {
	return &SerialFeed{
		opts: serial.OpenOptions{
			PortName:              portName,
			BaudRate:              uint(baudRate),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		},
		open: serial.Open,
	}
}

func (f *SerialFeed) Start(deliver func(imu.Sample)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.port != nil {
		return nil
	}

	port, err := f.open(f.opts)
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", f.opts.PortName, err)
	}
	log.Printf("serial feed: %s opened at %d baud", f.opts.PortName, f.opts.BaudRate)

	f.port = port
	f.done = make(chan struct{})
	go f.readLoop(port, deliver, f.done)
	return nil
}

func (f *SerialFeed) readLoop(port io.Reader, deliver func(imu.Sample), done chan struct{}) {
	defer close(done)
	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			sample, ok, perr := ParseLine(line, time.Now())
			if perr != nil {
				// partial sentences are normal right after opening the port
				log.Printf("serial feed: parse error: %v (line: %q)", perr, strings.TrimSpace(line))
			} else if ok {
				deliver(sample)
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("serial feed: read error: %v", err)
			}
			return
		}
	}
}

// Stop closes the port and waits for the reader to exit.
func (f *SerialFeed) Stop() error {
	f.mu.Lock()
	port, done := f.port, f.done
	f.port, f.done = nil, nil
	f.mu.Unlock()

	if port == nil {
		return nil
	}
	err := port.Close()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		log.Printf("serial feed: WARNING: reader on %s did not exit after close", f.opts.PortName)
	}
	if err != nil {
		return fmt.Errorf("serial: close %s: %w", f.opts.PortName, err)
	}
	return nil
}
