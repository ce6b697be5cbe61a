// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/headtrack/internal/imu"
)

// AccelReader reads raw accelerometer counts, as the MPU9250 driver does.
type AccelReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
}

// OpenMPU9250 initializes an MPU9250 over SPI with its chip select on csPin.
func OpenMPU9250(spiDev, csPin string, accelRange byte) (*mpu9250.MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("imu: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("imu: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("imu: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("imu: initialization: %w", err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("imu: set accel range: %w", err)
	}
	log.Printf("imu: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange&3])
	return dev, nil
}

// SPIFeed polls the accelerometer of a wired IMU. It only produces the
// accelerometer stream; pair it with a magnetometer feed through Combine.
type SPIFeed struct {
	name       string
	dev        AccelReader
	accelRange byte
	interval   time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewSPIFeed(name string, dev AccelReader, accelRange byte, interval time.Duration) *SPIFeed {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &SPIFeed{name: name, dev: dev, accelRange: accelRange, interval: interval}
}

// ReadRaw reads one accelerometer sample in device counts.
func (f *SPIFeed) ReadRaw() (imu.IMURaw, error) {
	ax, err := f.dev.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel X: %w", f.name, err)
	}
	ay, err := f.dev.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel Y: %w", f.name, err)
	}
	az, err := f.dev.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel Z: %w", f.name, err)
	}
	return imu.IMURaw{Source: f.name, Ax: ax, Ay: ay, Az: az}, nil
}

func (f *SPIFeed) Start(deliver func(imu.Sample)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		return nil
	}
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	go f.run(deliver, f.stop, f.done)
	return nil
}

func (f *SPIFeed) run(deliver func(imu.Sample), stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case t := <-ticker.C:
			raw, err := f.ReadRaw()
			if err != nil {
				log.Printf("spi feed: %v", err)
				continue
			}
			for _, s := range raw.Samples(f.accelRange, t) {
				deliver(s)
			}
		}
	}
}

func (f *SPIFeed) Stop() error {
	f.mu.Lock()
	stop, done := f.stop, f.done
	f.stop, f.done = nil, nil
	f.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}
