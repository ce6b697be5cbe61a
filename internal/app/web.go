package app

import (
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/headtrack/internal/metrics"
	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// tracker is the read side of a running pipeline.
type tracker interface {
	Pose() orientation.Pose
	View() smoothing.View
	Ready() bool
}

type orientationResponse struct {
	Pose        orientation.Pose `json:"pose"`
	PoseDegrees orientation.Pose `json:"pose_degrees"`
	View        smoothing.View   `json:"view"`
	// Quaternion is the camera rotation as [w, x, y, z].
	Quaternion [4]float64 `json:"quaternion"`
}

func newOrientationResponse(t tracker) orientationResponse {
	pose, view := t.Pose(), t.View()
	q := view.Quaternion()
	return orientationResponse{
		Pose:        pose,
		PoseDegrees: pose.Degrees(),
		View:        view,
		Quaternion:  [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
	}
}

// viewFrame is one websocket message.
type viewFrame struct {
	Session string    `json:"session"`
	Seq     uint64    `json:"seq"`
	Phi     float64   `json:"phi"`
	Theta   float64   `json:"theta"`
	Time    time.Time `json:"time"`
}

type webServer struct {
	tracker       tracker
	metrics       *metrics.Metrics
	gatherer      prometheus.Gatherer
	frameInterval time.Duration
	staticDir     string
	upgrader      websocket.Upgrader
	sessions      atomic.Int64
}

func newWebHandler(t tracker, m *metrics.Metrics, g prometheus.Gatherer, frameInterval time.Duration, staticDir string) http.Handler {
	s := &webServer{
		tracker:       t,
		metrics:       m,
		gatherer:      g,
		frameInterval: frameInterval,
		staticDir:     staticDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// viewer pages are served from other hosts during development
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", s.handleOrientation)
	mux.HandleFunc("/ws", s.handleWS)
	if g != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (s *webServer) handleOrientation(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.Ready() {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newOrientationResponse(s.tracker)); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS streams the smoothed view once per frame interval until the
// viewer disconnects.
func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	log.Printf("web: viewer %s connected (%d total)", session, s.sessions.Add(1))
	if s.metrics != nil {
		s.metrics.ViewerConnected()
	}
	defer func() {
		log.Printf("web: viewer %s disconnected (%d remaining)", session, s.sessions.Add(-1))
		if s.metrics != nil {
			s.metrics.ViewerLeft()
		}
	}()

	// Viewers never send data; reading detects the close and handles pongs.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	frames := time.NewTicker(s.frameInterval)
	defer frames.Stop()
	pings := time.NewTicker(pingPeriod)
	defer pings.Stop()

	var seq uint64
	for {
		select {
		case <-closed:
			return
		case t := <-frames.C:
			v := s.tracker.View()
			seq++
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(viewFrame{Session: session, Seq: seq, Phi: v.Phi, Theta: v.Theta, Time: t}); err != nil {
				return
			}
			if s.metrics != nil {
				s.metrics.FrameSent()
			}
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
