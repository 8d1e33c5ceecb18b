package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions carries the parsed CLI flags into the App.
type AppOptions struct {
	ConfigFile string
	DataDir    string
	Replay     bool
	MqttMode   bool
	HttpMode   bool
	HttpPort   int
	IntervalMs int
}

// appRunner is the subset of App that run drives; tests substitute a mock.
type appRunner interface {
	ApplyOptions(opts AppOptions)
	RunReplay()
	RunService()
}

// run parses args and dispatches to the appropriate app mode. It is separate
// from main so flag handling is testable.
func run(args []string, out io.Writer, app appRunner) error {
	fs := flag.NewFlagSet("skyfuse", flag.ContinueOnError)
	fs.SetOutput(out)

	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	dataDir := fs.String("data-dir", ".", "Directory containing per-source JSON payloads for replay mode")
	replay := fs.Bool("replay", false, "Run one processing cycle over JSON payload files and exit")
	mqttMode := fs.Bool("mqtt", false, "Enable MQTT ingest and publishing")
	httpMode := fs.Bool("http", false, "Enable HTTP server for fused aircraft state")
	httpPort := fs.Int("http-port", 8080, "HTTP server port (default 8080)")
	intervalMs := fs.Int("interval", 0, "Override poll cadence in milliseconds (default from config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "skyfuse version: %s\n", Version)

	app.ApplyOptions(AppOptions{
		ConfigFile: *configFile,
		DataDir:    *dataDir,
		Replay:     *replay,
		MqttMode:   *mqttMode,
		HttpMode:   *httpMode,
		HttpPort:   *httpPort,
		IntervalMs: *intervalMs,
	})

	if *replay {
		app.RunReplay()
		return nil
	}

	if *mqttMode || *httpMode {
		app.RunService()
		return nil
	}

	fmt.Fprintln(out, "skyfuse service starting...")
	fmt.Fprintln(out, "Use --replay to run one cycle over aircraft-<source>.json files")
	fmt.Fprintln(out, "Use --mqtt to enable MQTT ingest and publishing")
	fmt.Fprintln(out, "Use --http to serve fused aircraft state over HTTP")
	fmt.Fprintln(out, "Use --mqtt --http to run both together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - source priorities, cadence, MQTT settings")
	return nil
}

func main() {
	app := NewApp()
	if err := run(os.Args[1:], os.Stdout, app); err != nil {
		if err == flag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
