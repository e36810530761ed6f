// Headless simulation server: runs the sandbox on a fixed tick and
// streams rendered frames to browser clients over websockets. Clients
// send brush strokes and parameter changes as JSON; frames go out as
// binary RGBA with a small header.
package main

import (
	"encoding/binary"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/silt/config"
	"github.com/pthm-cable/silt/fluid"
	"github.com/pthm-cable/silt/grid"
	"github.com/pthm-cable/silt/renderer"
	"github.com/pthm-cable/silt/sim"
)

// clientMsg is the JSON input protocol. Type is one of "paint",
// "erase", "push", "param", "mode".
type clientMsg struct {
	Type     string  `json:"type"`
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Radius   int     `json:"radius"`
	Material string  `json:"material"`
	VX       float32 `json:"vx"`
	VY       float32 `json:"vy"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type server struct {
	s       *sim.Sim
	compose *renderer.Composer
	mode    renderer.Mode
	render  float32

	inputChan chan clientMsg

	clients      map[*websocket.Conn]*sync.Mutex
	clientsMutex sync.RWMutex
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	seed := flag.Int64("seed", 0, "Hash seed (0 = time-based)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *seed != 0 {
		cfg.Sim.Seed = *seed
	}
	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = time.Now().UnixNano()
	}

	srv := &server{
		s:         sim.New(cfg),
		compose:   renderer.NewComposer(cfg.Grid.Width, cfg.Grid.Height),
		render:    cfg.Derived.Render32,
		inputChan: make(chan clientMsg, 256),
		clients:   make(map[*websocket.Conn]*sync.Mutex),
	}
	defer srv.s.Close()

	go srv.simulationLoop(cfg.Fluid.DT)

	http.HandleFunc("/ws", srv.handleWebSocket)

	slog.Info("server starting", "addr", *addr,
		"grid_w", cfg.Grid.Width, "grid_h", cfg.Grid.Height)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// simulationLoop owns the sim: input application, stepping, and frame
// broadcast all happen on this goroutine.
func (srv *server) simulationLoop(dt float64) {
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	for range ticker.C {
		srv.drainInput()
		srv.s.Step()
		srv.compose.Compose(srv.mode, srv.s.Cells.Front(), srv.s.Solver, srv.render)
		srv.broadcastFrame()
	}
}

func (srv *server) drainInput() {
	pushSeen := false
	for {
		select {
		case msg := <-srv.inputChan:
			srv.applyMsg(msg, &pushSeen)
		default:
			if !pushSeen {
				srv.s.Push.Enabled = false
			}
			return
		}
	}
}

func (srv *server) applyMsg(msg clientMsg, pushSeen *bool) {
	switch msg.Type {
	case "paint":
		srv.s.Paint(int(msg.X), int(msg.Y), msg.Radius, materialByName(msg.Material))
	case "erase":
		srv.s.Erase(int(msg.X), int(msg.Y), msg.Radius)
	case "push":
		srv.s.Push = fluid.Push{
			X: msg.X, Y: msg.Y,
			Radius:  float32(msg.Radius),
			VX:      msg.VX,
			VY:      msg.VY,
			Enabled: true,
		}
		*pushSeen = true
	case "mode":
		for m := renderer.Mode(0); m < renderer.NumModes; m++ {
			if m.String() == msg.Name {
				srv.mode = m
			}
		}
	case "param":
		srv.applyParam(msg.Name, float32(msg.Value))
	}
}

func (srv *server) applyParam(name string, v float32) {
	switch name {
	case "fluidity":
		srv.s.Auto.Fluidity = v
	case "flip_ratio":
		srv.s.Fluid.FlipRatio = v
	case "surface_flip_ratio":
		srv.s.Fluid.SurfaceFlipRatio = v
	case "rest_density":
		srv.s.Fluid.RestDensity = v
	case "density_drift":
		srv.s.Fluid.DensityDrift = v
	case "viscosity":
		srv.s.Fluid.Viscosity = v
	case "vorticity":
		srv.s.Fluid.Vorticity = v
	case "gravity":
		srv.s.Fluid.Gravity = v
	case "pressure_iters":
		srv.s.Fluid.PressureIters = int(v)
	default:
		slog.Warn("unknown param", "name", name)
	}
}

func materialByName(name string) grid.Material {
	for m := grid.Material(0); m < grid.NumMaterials; m++ {
		if m.String() == name {
			return m
		}
	}
	return grid.Sand
}

func (srv *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connMutex := &sync.Mutex{}
	srv.clientsMutex.Lock()
	srv.clients[conn] = connMutex
	srv.clientsMutex.Unlock()
	defer func() {
		srv.clientsMutex.Lock()
		delete(srv.clients, conn)
		srv.clientsMutex.Unlock()
	}()

	slog.Info("client connected", "remote", r.RemoteAddr)

	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			slog.Info("client disconnected", "remote", r.RemoteAddr, "error", err)
			return
		}
		select {
		case srv.inputChan <- msg:
		default:
			// Input queue full: drop rather than stall the reader.
		}
	}
}

// frame layout: "SILT", uint32 width, uint32 height, uint32 frame,
// then width*height RGBA bytes. Little-endian.
func (srv *server) broadcastFrame() {
	header := make([]byte, 16)
	copy(header, "SILT")
	binary.LittleEndian.PutUint32(header[4:], uint32(srv.compose.W))
	binary.LittleEndian.PutUint32(header[8:], uint32(srv.compose.H))
	binary.LittleEndian.PutUint32(header[12:], srv.s.Frame)
	frame := append(header, srv.compose.Pix...)

	srv.clientsMutex.RLock()
	var failed []*websocket.Conn
	for client, mutex := range srv.clients {
		mutex.Lock()
		err := client.WriteMessage(websocket.BinaryMessage, frame)
		mutex.Unlock()
		if err != nil {
			client.Close()
			failed = append(failed, client)
		}
	}
	srv.clientsMutex.RUnlock()

	if len(failed) > 0 {
		srv.clientsMutex.Lock()
		for _, client := range failed {
			delete(srv.clients, client)
		}
		srv.clientsMutex.Unlock()
	}
}
