package app

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/headtrack/internal/config"
	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/pipeline"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

const consoleInterval = 100 * time.Millisecond

func formatConsoleLine(p orientation.Pose, v smoothing.View) string {
	d := p.Degrees()
	return fmt.Sprintf(
		"[POSE] AZ=%7.2f  PITCH=%6.2f  ROLL=%7.2f  [VIEW] PHI=%6.2f  THETA=%8.2f",
		d.Azimuth, d.Pitch, d.Roll, v.Phi*180/math.Pi, v.Theta*180/math.Pi,
	)
}

// RunConsole runs the pipeline and prints pose and view lines until
// interrupted.
func RunConsole() error {
	log.Println("starting headtrack console")
	cfg := config.Get()

	p, client, err := startPipeline(cfg, "console", pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	defer disconnect(client)

	stop := make(chan struct{})
	go func() {
		waitForSignal()
		close(stop)
	}()

	ticker := time.NewTicker(consoleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			log.Println("console: shutting down")
			return p.Stop()
		case <-ticker.C:
			if !p.Ready() {
				continue
			}
			fmt.Println(formatConsoleLine(p.Pose(), p.View()))
		}
	}
}
