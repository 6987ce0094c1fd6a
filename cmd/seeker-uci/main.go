package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/seeker-chess/seeker/internal/engine"
	"github.com/seeker-chess/seeker/internal/eval"
	"github.com/seeker-chess/seeker/internal/storage"
	"github.com/seeker-chess/seeker/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", 0, "transposition table size in MB (overrides saved config)")
	noStore    = flag.Bool("nostore", false, "run without persistent storage")
)

func main() {
	// Stdout is the UCI protocol stream; everything else goes to stderr
	log.SetOutput(os.Stderr)
	log.SetPrefix("seeker: ")
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	// Storage is best-effort: a locked or unwritable database must not keep
	// the engine from answering a GUI.
	var store *storage.Storage
	if !*noStore {
		var err error
		store, err = storage.NewStorage()
		if err != nil {
			log.Printf("persistent storage unavailable: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	cfg := storage.DefaultConfig()
	if store != nil {
		loaded, err := store.LoadConfig()
		if err != nil {
			log.Printf("load config: %v", err)
		} else {
			cfg = loaded
		}
	}
	if *hashMB > 0 {
		cfg.HashMB = *hashMB
	}

	eng := engine.NewEngine(cfg.HashMB, eval.Evaluate)

	protocol := uci.New(eng, store, cfg)
	protocol.Run(os.Stdin)
}
