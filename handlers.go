package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nbd/skyfuse/track"
)

// newHTTPServer creates an HTTP server with all endpoints.
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _, lastCycle := app.LastCycle()
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			LastCycle time.Time `json:"lastCycle"`
			CacheSize int       `json:"cacheSize"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			LastCycle: lastCycle,
			CacheSize: app.Coordinator.CacheSize(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Fused aircraft list plus the producing cycle's statistics
	mux.HandleFunc("/aircraft.json", func(w http.ResponseWriter, r *http.Request) {
		aircraft, stats, _ := app.LastCycle()
		if aircraft == nil {
			aircraft = []*track.FusedAircraft{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		out := struct {
			Aircraft []*track.FusedAircraft `json:"aircraft"`
			Stats    track.ProcessingStats  `json:"stats"`
		}{aircraft, stats}
		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.Printf("Error encoding aircraft list: %v", err)
		}
	})

	// GeoJSON rendition of the fused aircraft list
	mux.HandleFunc("/aircraft.geojson", func(w http.ResponseWriter, r *http.Request) {
		aircraft, _, _ := app.LastCycle()
		fc := track.ToFeatureCollection(aircraft)

		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(fc); err != nil {
			log.Printf("Error encoding aircraft GeoJSON: %v", err)
		}
	})

	// Last cycle statistics only
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		_, stats, _ := app.LastCycle()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Printf("Error encoding stats: %v", err)
		}
	})

	// Default route serves a minimal HTML page polling the aircraft list
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>skyfuse</title>
<style>
body{font-family:monospace;background:#1a1a1a;color:#ddd;margin:2em}
table{border-collapse:collapse}
td,th{padding:2px 12px;text-align:left}
</style>
</head>
<body>
<h1>skyfuse</h1>
<table id="aircraft"><thead><tr>
<th>hex</th><th>flight</th><th>lat</th><th>lon</th><th>alt</th><th>gs</th><th>trk</th><th>conf</th>
</tr></thead><tbody></tbody></table>
<script>
async function refresh(){
  const res = await fetch('/aircraft.json');
  const data = await res.json();
  const rows = data.aircraft.map(a =>
    '<tr><td>'+(a.hex||'')+'</td><td>'+(a.flight||'')+'</td><td>'+a.lat.toFixed(4)+
    '</td><td>'+a.lon.toFixed(4)+'</td><td>'+a.altitude+'</td><td>'+a.gs+
    '</td><td>'+a.track+'</td><td>'+a.confidence.toFixed(1)+'</td></tr>').join('');
  document.querySelector('#aircraft tbody').innerHTML = rows;
}
refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>`)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}
