// Command traceserver serves on-demand GPS trace matching over HTTP against
// an Overture-style road network loaded once at startup.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/paulmach/orb/maptile"

	"github.com/azybler/tracematch/pkg/api"
	"github.com/azybler/tracematch/pkg/hmm"
	"github.com/azybler/tracematch/pkg/ingest"
	"github.com/azybler/tracematch/pkg/spatial"
)

func main() {
	roadsPath := flag.String("roads", "", "Path to Overture road network GeoJSON file")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	resolution := flag.Int("resolution", int(spatial.DefaultResolution), "Map tile zoom level used to pre-filter candidates")
	sigma := flag.Float64("sigma", hmm.DefaultOptions().Sigma, "Sigma param - controlling tolerance to GPS noise")
	beta := flag.Float64("beta", hmm.DefaultOptions().Beta, "Beta param - controlling confidence in route")
	allowLoops := flag.Bool("allow_loops", hmm.DefaultOptions().AllowLoops, "Allow a matched route to revisit the same road segment")
	maxPointToRoadDistance := flag.Float64("max_point_to_road_distance", hmm.DefaultOptions().MaxPointToRoadDistance, "Max distance in meters from a trace point to a candidate road")
	maxRouteToTraceDistanceDifference := flag.Float64("max_route_to_trace_distance_difference", hmm.DefaultOptions().MaxRouteToTraceDistanceDifference, "Max allowed difference in meters between route distance and trace distance")
	flag.Parse()

	if *roadsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: traceserver --roads overture.geojson [--port 8080]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	start := time.Now()

	log.Printf("Loading road network from %s...", *roadsPath)
	data, err := os.ReadFile(*roadsPath)
	if err != nil {
		log.Fatalf("Failed to read --roads: %v", err)
	}
	roadFeatures, err := ingest.LoadFeatureCollection(data)
	if err != nil {
		log.Fatalf("Failed to parse --roads: %v", err)
	}
	log.Printf("Loaded %d road features", len(roadFeatures))

	log.Println("Building spatial index...")
	roads := spatial.NewMatchableSet(roadFeatures, maptile.Zoom(*resolution))

	// Reclaim memory from init-time temporaries, the same way the teacher's
	// preprocessing step does after building its own index.
	runtime.GC()
	debug.FreeOSMemory()

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	opts := hmm.DefaultOptions()
	opts.Sigma = *sigma
	opts.Beta = *beta
	opts.AllowLoops = *allowLoops
	opts.MaxPointToRoadDistance = *maxPointToRoadDistance
	opts.MaxRouteToTraceDistanceDifference = *maxRouteToTraceDistanceDifference
	opts.Resolution = maptile.Zoom(*resolution)

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(roads, opts)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
