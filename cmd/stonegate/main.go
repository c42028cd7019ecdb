// StoneGate - quantum-testbed control and monitoring backend.
//
// Serves a duplex websocket at /status exposing the device registry,
// recorder, schematic store, and QEC stubs described by the protocol in
// pkg/session. Runs either against real apparatus drivers or, with --sim, a
// graph-driven simulation backed by pkg/physics.
//
// Examples:
//
//	stonegate --sim                          # simulated lab on :8080
//	stonegate -p 9100                        # hardware mode on :9100
//	stonegate 9100                           # legacy bare-port form
//	stonegate --sim --graph my_graph.json
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stonegate-lab/stonegate/pkg/cli"
	"github.com/stonegate-lab/stonegate/pkg/device"
	"github.com/stonegate-lab/stonegate/pkg/mirror"
	"github.com/stonegate-lab/stonegate/pkg/physics"
	"github.com/stonegate-lab/stonegate/pkg/recorder"
	"github.com/stonegate-lab/stonegate/pkg/registry"
	"github.com/stonegate-lab/stonegate/pkg/schematic"
	"github.com/stonegate-lab/stonegate/pkg/session"
	"github.com/stonegate-lab/stonegate/pkg/settings"
	"github.com/stonegate-lab/stonegate/pkg/simgraph"
	"github.com/stonegate-lab/stonegate/pkg/util"
	"github.com/stonegate-lab/stonegate/pkg/version"
)

const broadcastInterval = 500 * time.Millisecond

// flags holds every CLI option registered on rootCmd in init.
type flags struct {
	port      int
	sim       bool
	graphPath string
	redisAddr string
	logJSON   bool
	verbose   bool
}

var f = flags{}

func main() {
	// Legacy bare-numeric first argument: "stonegate 9100" means "-p 9100".
	if len(os.Args) > 1 && isBarePort(os.Args[1]) {
		os.Args = append([]string{os.Args[0], "-p", os.Args[1]}, os.Args[2:]...)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func isBarePort(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return false
	}
	_, err := strconv.Atoi(arg)
	return err == nil
}

var rootCmd = &cobra.Command{
	Use:           "stonegate",
	Short:         "StoneGate quantum-testbed control and monitoring backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().IntVarP(&f.port, "port", "p", 0, "listen port (default 9001, or 8080 with --sim)")
	rootCmd.Flags().BoolVarP(&f.sim, "sim", "s", false, "run in simulation mode against a device graph")
	rootCmd.Flags().StringVar(&f.graphPath, "graph", "", "path to DeviceGraph.json (default shared/protocol/DeviceGraph.json)")
	rootCmd.Flags().StringVar(&f.redisAddr, "redis-addr", "", "optional Redis address for the status mirror")
	rootCmd.Flags().BoolVar(&f.logJSON, "log-json", false, "emit structured JSON logs instead of text")
	rootCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "debug-level logging")
}

func run() error {
	userSettings, err := settings.Load()
	if err != nil {
		util.Warnf("could not load settings: %v", err)
		userSettings = &settings.Settings{}
	}

	if f.verbose || userSettings.Verbose {
		util.SetLogLevel("debug")
	}
	if f.logJSON || userSettings.LogJSON {
		util.SetJSONFormat()
	}

	port := f.port
	if port == 0 {
		port = userSettings.DefaultPort
	}
	if port == 0 {
		if f.sim {
			port = 8080
		} else {
			port = 9001
		}
	}

	graphPath := f.graphPath
	if graphPath == "" {
		graphPath = userSettings.GraphPath
	}
	if graphPath == "" {
		graphPath = settings.DefaultGraphPath
	}
	graphDir := filepath.Dir(graphPath)
	schemaPath := filepath.Join(graphDir, "ComponentSchema.json")
	partsPath := filepath.Join(graphDir, "PartsLibrary.json")
	overridesPath := filepath.Join(graphDir, "device_overrides.json")
	recordingsDir := filepath.Join(graphDir, "recordings")

	redisAddr := f.redisAddr
	if redisAddr == "" {
		redisAddr = userSettings.RedisAddr
	}

	reg := registry.New()
	engine := physics.New()
	mode := "hardware"

	if f.sim {
		mode = "simulation"
		if err := simgraph.Load(graphPath, schemaPath, partsPath, engine, reg); err != nil {
			return fmt.Errorf("loading device graph: %w", err)
		}
		if err := engine.LoadDeviceOverrides(overridesPath); err != nil {
			util.Warnf("no device overrides loaded: %v", err)
		}
		engine.StartBackgroundLoop(100 * time.Millisecond)
		defer engine.StopBackgroundLoop()
	} else {
		seedHardwareDevices(reg, engine)
	}

	store := schematic.NewStore(graphDir)
	rec := recorder.New(reg, recordingsDir)
	defer rec.StopAll()

	mir := mirror.New(redisAddr)
	defer mir.Close()
	if redisAddr != "" {
		if err := mir.Ping(); err != nil {
			util.Warnf("status mirror at %s unreachable: %v", redisAddr, err)
		}
	}

	srv := session.NewServer(reg, engine, store, rec, mir, graphPath, schemaPath, port, mode)
	srv.StartBroadcastLoop(broadcastInterval)
	defer srv.StopBroadcastLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("/status", srv.HandleWebSocket)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	printBanner(port, mode, graphPath)
	printDeviceRoster(reg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving: %w", err)
		}
	case <-sigCh:
		util.Info("shutting down")
		httpServer.Close()
	}
	return nil
}

// seedHardwareDevices registers the fixed set of real-instrument drivers
// for hardware mode. A real deployment would discover these from a bus or
// config file; stonegate's spec fixes the device roster up front.
func seedHardwareDevices(reg *registry.Registry, engine *physics.Engine) {
	reg.Register(device.NewThermocouple("thermo-1", 20.0))
	reg.Register(device.NewPhotonicDetector("detector-1", 1000.0, 50.0))
	reg.Register(device.NewLN2CoolingController("ln2-1", 77.0, 2.0, engine))
	reg.Register(device.NewLaserController("laser-1", 0, 0.5))
	reg.Register(device.NewAncillaQubit("ancilla-1", "syndrome"))
	reg.Register(device.NewQuantumRegister("qreg-1", 4))
	reg.Register(device.NewPulseSequencer("pulse-1"))
	reg.Register(device.NewQECModule("qec-1", "surface"))
}

func printBanner(port int, mode, graphPath string) {
	fmt.Println(cli.Bold(version.Info()))
	fmt.Printf("  mode:     %s\n", cli.Green(mode))
	fmt.Printf("  port:     %d\n", port)
	fmt.Printf("  endpoint: ws://localhost:%d/status\n", port)
	if mode == "simulation" {
		fmt.Printf("  graph:    %s\n", graphPath)
	}
}

// printDeviceRoster prints the registered devices as a terminal-width-aware
// table, so an operator staring at a console immediately sees what booted.
func printDeviceRoster(reg *registry.Registry) {
	table := cli.NewTable("ID", "TYPE", "STATUS")
	reg.ForEach(func(d device.Device) {
		desc := d.Descriptor()
		table.Row(desc.ID, desc.Type, desc.Status)
	})
	table.Flush()
}
