package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/ayusman/markerpad/internal/actuator"
	"github.com/ayusman/markerpad/internal/app"
	"github.com/ayusman/markerpad/internal/capture"
	"github.com/ayusman/markerpad/internal/config"
	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/logging"
	"github.com/ayusman/markerpad/internal/metrics"
	"github.com/ayusman/markerpad/internal/server"
	"github.com/ayusman/markerpad/internal/store"
	"github.com/ayusman/markerpad/internal/tray"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "markerpad: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "markerpad: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray.Enabled {
		if err := run(ctx, cfg, log, nil); err != nil {
			log.Error().Err(err).Msg("markerpad failed")
			os.Exit(1)
		}
		return
	}

	// The tray event loop must own the main goroutine.
	t := tray.New(!cfg.Intent.StartPaused)
	ctx, cancel := context.WithCancel(ctx)
	t.OnQuit(cancel)

	errc := make(chan error, 1)
	go func() {
		errc <- run(ctx, cfg, log, t)
		t.Quit()
	}()
	t.Run()
	cancel()

	if runErr := <-errc; runErr != nil {
		log.Error().Err(runErr).Msg("markerpad failed")
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is done or the frame
// source ends.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, t *tray.Tray) error {
	if cfg.File != "" {
		log.Info().Str("file", cfg.File).Msg("loaded config")
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if stats, err := st.Stats(); err != nil {
		log.Warn().Err(err).Str("path", st.Path()).Msg("opened store")
	} else {
		log.Info().Str("path", st.Path()).Int("profiles", stats.Profiles).Int("samples", stats.Samples).Msg("opened store")
	}

	dc, err := cfg.DetectorConfig()
	if err != nil {
		return err
	}
	if band, name, err := profileBand(st, cfg.Band.Profile); err != nil {
		return err
	} else if name != "" {
		dc.Band = band
		log.Info().Str("profile", name).Stringer("band", band).Msg("using color profile")
	}

	det, err := detector.NewHSVDetector(dc)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	keys, err := actuator.New(cfg.ActuatorConfig(), logging.Component(log, "actuator"))
	if err != nil {
		det.Close()
		return fmt.Errorf("create actuator: %w", err)
	}

	ic, err := cfg.IntentConfig()
	if err != nil {
		det.Close()
		keys.Close()
		return err
	}

	m := metrics.New()
	tracker, err := app.New(app.Config{
		Layout:        cfg.Layout(),
		Intent:        ic,
		ReadTimeout:   cfg.Camera.ReadTimeout,
		FrameInterval: cfg.Camera.FrameInterval,
		JPEGQuality:   cfg.Server.JPEGQuality,
		Paused:        cfg.Intent.StartPaused,
	}, app.Deps{
		Camera:   capture.NewCamera(cfg.CaptureConfig()),
		Detector: det,
		Actuator: keys,
		Metrics:  m,
		Log:      log,
	})
	if err != nil {
		det.Close()
		keys.Close()
		return err
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Info().Str("dir", staticDir).Msg("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir:   staticDir,
		AllowOrigin: cfg.Server.AllowOrigin,
		Store:       st,
		Tracker:     tracker,
		Metrics:     m,
		Log:         log,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if t != nil {
		t.OnToggle(tracker.SetEnabled)
		t.OnOpen(func() { openBrowser(viewerURL(cfg.Server.Addr), log) })
		events, unsubscribe := tracker.SubscribeEvents()
		defer unsubscribe()
		go t.Watch(ctx, events)
	}

	var wg sync.WaitGroup
	var serveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
			serveErr = fmt.Errorf("http server: %w", err)
			cancel()
		}
	}()

	log.Info().
		Str("device", cfg.Camera.Device).
		Str("actuator", cfg.Actuator.Kind).
		Str("mode", ic.Mode.String()).
		Msg("markerpad starting")

	runErr := tracker.Run(ctx)
	cancel()
	wg.Wait()

	return errors.Join(runErr, serveErr)
}

// profileBand returns the band of the named profile, or of the active one
// when name is empty. It returns an empty name when no profile applies.
func profileBand(st *store.Store, name string) (detector.ColorBand, string, error) {
	var (
		p   *store.Profile
		err error
	)
	if name != "" {
		p, err = st.Profiles().GetByName(name)
		if err != nil {
			return detector.ColorBand{}, "", fmt.Errorf("profile %q: %w", name, err)
		}
	} else {
		p, err = st.ActiveProfile()
		if errors.Is(err, store.ErrNotFound) {
			return detector.ColorBand{}, "", nil
		}
		if err != nil {
			return detector.ColorBand{}, "", fmt.Errorf("active profile: %w", err)
		}
	}
	return p.Band, p.Name, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.markerpad/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".markerpad", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}

func viewerURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/video_feed"
}

func openBrowser(url string, log zerolog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("open browser")
		return
	}
	go cmd.Wait()
}
