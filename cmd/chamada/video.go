package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/capture/opencv"
	"github.com/saturnino-fabrica-de-software/chamada/internal/video"
)

var videoCmd = &cobra.Command{
	Use:   "video <source>",
	Short: "Take attendance from a video file, a photo or a camera",
	Long: `Take attendance from a video file, a still image or a camera.

Frames are sampled at --fps and recognized on a copy downscaled by
--downscale. Everyone recognized is marked present once per day.
Ctrl-C stops the run and prints the summary.

Examples:
  # Process a recorded class
  chamada video aula.mp4

  # Live webcam with the preview window (press q to stop)
  chamada video camera:0 --window`,
	Args: cobra.ExactArgs(1),
	RunE: runVideo,
}

func init() {
	rootCmd.AddCommand(videoCmd)

	videoCmd.Flags().Bool("window", false, "Show the annotated preview window")
	videoCmd.Flags().Float64("fps", 0, "Frames per second to analyze (0 = TARGET_FPS)")
	videoCmd.Flags().Int("downscale", 0, "Detection downscale factor (0 = DOWNSCALE)")
}

func runVideo(cmd *cobra.Command, args []string) error {
	window, _ := cmd.Flags().GetBool("window")
	fps, _ := cmd.Flags().GetFloat64("fps")
	downscale, _ := cmd.Flags().GetInt("downscale")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}

	src, err := a.OpenSource(args[0])
	if err != nil {
		return err
	}

	bar := newFrameBar(src.FrameCount())

	processor := a.NewProcessor().
		WithOptions(video.Options{TargetFPS: fps, Downscale: downscale}).
		OnProgress(func(p video.Progress) {
			_ = bar.Set(p.Frame)
			bar.Describe(fmt.Sprintf("%d present", p.MarkedToday))
			if len(p.NewlyMarked) > 0 {
				_ = bar.Clear()
				fmt.Printf("%s  marked %s\n", time.Now().Format("15:04"), strings.Join(p.NewlyMarked, ", "))
			}
		})

	if window {
		w := opencv.NewWindow("chamada - " + src.Name())
		defer func() {
			_ = w.Close()
		}()
		processor = processor.WithDisplay(w)
	}

	summary, err := processor.Run(ctx, src)
	_ = bar.Finish()
	fmt.Println()

	if summary != nil {
		printSummary(summary)
	}
	return err
}

// newFrameBar shows a bar for sources with a frame count and a spinner
// for cameras.
func newFrameBar(total int) *progressbar.ProgressBar {
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Processing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func printSummary(s *video.Summary) {
	fmt.Printf("Source:        %s\n", s.Source)
	fmt.Printf("Ended:         %s\n", s.EndReason)
	if s.EndReason == video.EndReadError {
		fmt.Fprintf(os.Stderr, "warning: source stopped delivering frames: %s\n", s.Error)
	}
	fmt.Printf("Elapsed:       %s\n", s.Elapsed.Round(time.Millisecond))
	if s.TotalFrames > 0 {
		fmt.Printf("Frames:        %d/%d read, %d analyzed (every %d)\n", s.FramesRead, s.TotalFrames, s.FramesSampled, s.Stride)
	} else {
		fmt.Printf("Frames:        %d read, %d analyzed (every %d)\n", s.FramesRead, s.FramesSampled, s.Stride)
	}
	fmt.Printf("Analysis rate: %.2f fps", s.EffectiveFPS)
	if s.RealtimeFactor > 0 {
		fmt.Printf(" (%.2fx realtime)", s.RealtimeFactor)
	}
	fmt.Println()

	if len(s.Marked) == 0 {
		fmt.Println("New marks:     none")
	} else {
		fmt.Printf("New marks:     %s\n", strings.Join(s.Marked, ", "))
	}
	fmt.Printf("Present today: %d\n", s.MarkedToday)
	if s.PersistErrors > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d marks could not be written to the attendance file\n", s.PersistErrors)
	}
}

