// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/relabs-tech/headtrack/internal/config"
	"github.com/relabs-tech/headtrack/internal/display"
	"github.com/relabs-tech/headtrack/internal/metrics"
	"github.com/relabs-tech/headtrack/internal/pipeline"
	"github.com/relabs-tech/headtrack/internal/sensors"
)

const staticDir = "web"

// startPipeline connects to the broker when the configuration asks for it,
// opens the configured feed and starts a pipeline on it. The returned
// client is nil when no broker is reachable and the feed does not need one.
func startPipeline(cfg *config.Config, role string, opts pipeline.Options) (*pipeline.Pipeline, mqtt.Client, error) {
	var client mqtt.Client
	if cfg.MQTTBroker != "" {
		c, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientID, role))
		switch {
		case err == nil:
			client = c
		case needsBroker(cfg.Feed):
			return nil, nil, err
		default:
			log.Printf("%s: WARNING: %v, continuing without MQTT", role, err)
		}
	}

	var sub sensors.Subscriber
	if client != nil {
		sub = client
	}
	feed, err := openFeed(cfg, sub)
	if err != nil {
		disconnect(client)
		return nil, nil, err
	}

	p := pipeline.New(feed, opts)
	if err := p.Start(); err != nil {
		disconnect(client)
		return nil, nil, err
	}
	return p, client, nil
}

func disconnect(client mqtt.Client) {
	if client != nil {
		client.Disconnect(250)
	}
}

// publishState sends the pose and view once per interval after the first
// reading.
func publishState(ctx context.Context, client sensors.Publisher, t tracker, poseTopic, viewTopic string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.Ready() {
				continue
			}
			if err := publishJSON(client, poseTopic, t.Pose()); err != nil {
				log.Printf("headtrack: %v", err)
				continue
			}
			if err := publishJSON(client, viewTopic, t.View()); err != nil {
				log.Printf("headtrack: %v", err)
			}
		}
	}
}

// RunHeadtrack runs the tracking pipeline and serves it over HTTP until
// interrupted.
func RunHeadtrack() error {
	log.Println("starting headtrack viewer server")
	cfg := config.Get()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Metrics = m
	p, client, err := startPipeline(cfg, "headtrack", opts)
	if err != nil {
		return err
	}
	defer disconnect(client)
	defer func() {
		if err := p.Stop(); err != nil {
			log.Printf("headtrack: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if client != nil {
		go publishState(ctx, client, p, cfg.TopicPose, cfg.TopicView, ms(cfg.FrameInterval))
		log.Printf("headtrack: publishing to %s and %s", cfg.TopicPose, cfg.TopicView)
	}

	if cfg.DisplayEnable {
		dev, closeBus, err := display.Open(cfg.DisplayI2CBus)
		if err != nil {
			log.Printf("headtrack: WARNING: display disabled: %v", err)
		} else {
			defer closeBus()
			go display.Run(ctx, dev, ms(cfg.DisplayUpdateInterval), func() display.Snapshot {
				return display.Snapshot{Pose: p.Pose(), View: p.View(), Ready: p.Ready()}
			})
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: newWebHandler(p, m, reg, ms(cfg.FrameInterval), staticDir),
	}

	go func() {
		waitForSignal()
		log.Println("headtrack: shutting down")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("headtrack: http shutdown: %v", err)
		}
	}()

	log.Printf("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
