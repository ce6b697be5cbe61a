package sensors

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/headtrack/internal/imu"
)

// Feed mirrors orientation.Feed so this package can compose feeds without
// depending on a particular consumer.
type Feed interface {
	Start(deliver func(imu.Sample)) error
	Stop() error
}

type combined []Feed

// Combine merges feeds, for example an SPI accelerometer and an MQTT
// magnetometer. Start is all-or-nothing.
func Combine(feeds ...Feed) Feed {
	return combined(feeds)
}

func (c combined) Start(deliver func(imu.Sample)) error {
	for i, f := range c {
		if err := f.Start(deliver); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c[j].Stop()
			}
			return fmt.Errorf("feed %d: %w", i, err)
		}
	}
	return nil
}

func (c combined) Stop() error {
	var errs []error
	for _, f := range c {
		if err := f.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
