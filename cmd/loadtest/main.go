package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusreg/server/internal/loadtest"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "base URL of the server under test")
		profile   = flag.String("profile", "light", "load profile: light, medium, heavy, stress, burst, peak")
		rps       = flag.Int("rps", 0, "override the profile's requests per second")
		duration  = flag.Duration("duration", 0, "override the profile's steady-state duration")
		readRatio = flag.Float64("read-ratio", 0, "override the profile's read share (0.0-1.0)")
		noRamp    = flag.Bool("no-ramp", false, "start and stop at full rate, skipping the ramps")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *baseURL, *profile, *rps, *duration, *readRatio, *noRamp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL, profile string, rps int, duration time.Duration, readRatio float64, noRamp bool) error {
	tester := loadtest.NewLoadTester(baseURL)

	custom := rps > 0 || duration > 0 || readRatio > 0 || noRamp
	if !custom {
		fmt.Printf("Running load profile: %s\n\n", profile)
		stats, err := tester.Run(ctx, loadtest.LoadProfile(profile))
		if err != nil {
			return err
		}
		fmt.Println(stats.Report())
		return nil
	}

	// Overrides start from the named profile, so -profile heavy -rps 120
	// keeps heavy's duration and seed counts.
	config, ok := loadtest.LoadProfiles[loadtest.LoadProfile(profile)]
	if !ok {
		return fmt.Errorf("unknown profile %q", profile)
	}
	if rps > 0 {
		config.RequestsPerSecond = rps
	}
	if duration > 0 {
		config.Duration = duration
	}
	if readRatio > 0 {
		config.ReadWriteRatio = readRatio
	}
	if noRamp {
		config.RampUpTime = 0
		config.RampDownTime = 0
	}

	fmt.Printf("Running custom configuration based on profile %s\n\n", profile)
	stats, err := tester.RunCustom(ctx, config)
	if err != nil {
		return err
	}
	fmt.Println(stats.Report())
	return nil
}
