package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/app"
	"github.com/saturnino-fabrica-de-software/chamada/internal/capture/opencv"
	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
)

var (
	facesDir       string
	attendanceFile string
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "chamada",
	Short: "Face recognition attendance",
	Long: `Chamada keeps a daily attendance list by recognizing faces.

Reference photos live in a directory, one <name>.jpg|.jpeg|.png per person.
Attendance is written to a JSON file keyed by date.

Configuration comes from the environment (or a .env file in the current
directory); see FACES_DIR, ATTENDANCE_FILE, FACE_PROVIDER and DEEPFACE_URL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&facesDir, "faces", "", "Reference image directory (overrides FACES_DIR)")
	rootCmd.PersistentFlags().StringVar(&attendanceFile, "attendance", "", "Attendance file (overrides ATTENDANCE_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the environment and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if facesDir != "" {
		cfg.FacesDir = facesDir
	}
	if attendanceFile != "" {
		cfg.AttendanceFile = attendanceFile
	}
	return cfg, nil
}

// newLogger keeps stdout for command output. Without --verbose only
// warnings reach stderr.
func newLogger(cfg *config.Config) *slog.Logger {
	if verbose {
		return config.NewLoggerTo(os.Stderr, cfg.Environment)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// newApp builds the core. withGallery loads the reference images, which
// calls the face provider once per image.
func newApp(ctx context.Context, withGallery bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, newLogger(cfg), app.WithOpener(opencv.Opener{}))
	if err != nil {
		return nil, err
	}

	if withGallery {
		report, err := a.LoadGallery(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range report.Skipped {
			fmt.Fprintf(os.Stderr, "warning: skipped %s (%s)\n", s.File, s.Reason)
		}
	}
	return a, nil
}
