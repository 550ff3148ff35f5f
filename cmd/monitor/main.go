// Command monitor tracks one device against the geofence API. Positions are
// read from stdin as "lat,lng[,accuracyMeters]" lines.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/geofence-system/internal/client/monitor"
	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/pkg/logger"
)

var errNoFix = errors.New("no position read yet")

// lineSource keeps the most recent position read from r.
type lineSource struct {
	mu  sync.Mutex
	fix *monitor.Fix
}

func (s *lineSource) Current(context.Context) (monitor.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fix == nil {
		return monitor.Fix{}, errNoFix
	}
	return *s.fix, nil
}

func (s *lineSource) set(f monitor.Fix) {
	s.mu.Lock()
	s.fix = &f
	s.mu.Unlock()
}

func parseFix(line string) (monitor.Fix, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) < 2 || len(parts) > 3 {
		return monitor.Fix{}, fmt.Errorf("expected lat,lng[,accuracy], got %q", line)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return monitor.Fix{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return monitor.Fix{Position: domain.LatLng{Lat: vals[0], Lng: vals[1]}, AccuracyMeters: vals[2]}, nil
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Init(logger.Options{
		Level:   os.Getenv("LOG_LEVEL"),
		Pretty:  true,
		Output:  os.Stderr,
		Service: "geofence-monitor",
	})

	cfg, err := monitor.LoadConfig(ctx, envconfig.OsLookuper())
	if err != nil {
		log.Fatal().Err(err).Msg("monitor config")
	}

	client := monitor.NewAPIClient(cfg.APIURL, cfg.ReportTimeout, nil)
	source := &lineSource{}

	var feed monitor.RegionFeed
	var reporter monitor.PositionReporter
	if cfg.Mode == monitor.ModeLocal {
		feed = client
	} else {
		reporter = client
	}

	m, err := monitor.New(*cfg, feed, reporter, source, logger.Component("monitor"))
	if err != nil {
		log.Fatal().Err(err).Msg("monitor init")
	}
	m.AddListener(func(e domain.TransitionEvent) {
		emit(log, e)
	})

	if err := m.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("monitor start")
	}
	defer m.Stop()

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "refresh" {
				if err := m.Refresh(ctx); err != nil {
					log.Warn().Err(err).Msg("refresh")
				}
				continue
			}
			fix, err := parseFix(line)
			if err != nil {
				log.Warn().Err(err).Msg("skipping line")
				continue
			}
			if !cfg.Manual {
				source.set(fix)
				continue
			}
			if err := m.SetTestPosition(ctx, fix); err != nil {
				log.Warn().Err(err).Msg("position")
			}
		}
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out <- line
		}
	}
}

func emit(log zerolog.Logger, e domain.TransitionEvent) {
	log.Info().
		Str("type", string(e.Kind)).
		Str("region_id", e.Region.ID).
		Str("region_name", e.Region.Name).
		Time("timestamp", e.Timestamp).
		Msg("geofence transition")
}
