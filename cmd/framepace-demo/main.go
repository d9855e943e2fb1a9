// Command framepace-demo renders a triangle through the frame-pacing core
// and reports pacing statistics. It opens a Vulkan device, runs a paced
// render loop with N frames in flight, and optionally saves the last frame
// as a PNG.
package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepace"
	"github.com/gogpu/framepace/internal/halengine"
)

func main() {
	var (
		width          = flag.Int("width", 1280, "render target width")
		height         = flag.Int("height", 720, "render target height")
		software       = flag.Bool("software", false, "prefer a CPU (software) adapter")
		framesInFlight = flag.Int("frames-in-flight", 3, "number of pipelined frames")
		frames         = flag.Uint64("frames", 600, "frames to render (0 = until interrupted)")
		waitTimeout    = flag.Duration("wait-timeout", 0, "per-wait timeout (0 = unbounded)")
		output         = flag.String("output", "", "save the last frame as PNG")
		verbose        = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	framepace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*width, *height, *software, *framesInFlight, *frames, *waitTimeout, *output); err != nil {
		log.Fatalf("framepace-demo: %v", err)
	}
}

func run(width, height int, software bool, framesInFlight int, frames uint64, waitTimeout time.Duration, output string) error {
	gpu, err := halengine.Open(software)
	if err != nil {
		return err
	}
	defer gpu.Close()

	engine, err := halengine.NewQueueEngine(gpu.Device(), gpu.Queue())
	if err != nil {
		return err
	}
	defer engine.Close()

	targets, err := halengine.NewFrameTargets(gpu.Device(), framesInFlight, uint32(width), uint32(height))
	if err != nil {
		return err
	}
	defer targets.Destroy()

	renderer, err := halengine.NewRenderer(gpu.Device(), gpu.Queue(), engine, targets)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	timeout := framepace.NoTimeout
	if waitTimeout > 0 {
		timeout = waitTimeout
	}
	pacer, err := framepace.NewPacer(engine,
		framepace.WithFramesInFlight(framesInFlight),
		framepace.WithWaitTimeout(timeout))
	if err != nil {
		return err
	}
	// Close flushes so the deferred Destroy calls above run only after the
	// GPU has finished every slot's work.
	defer pacer.Close() //nolint:errcheck // flush failure is already fatal below

	loop, err := framepace.NewLoop(pacer, func(_ context.Context, f framepace.Frame) error {
		renderer.SetClearColor(clearColor(f.Index))
		return renderer.RecordFrame(f.Slot)
	}, framepace.WithMaxFrames(frames))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("rendered %d frames on %s in %v (%.1f fps, %d blocked waits, %d flushes)",
		stats.Frames, gpu.AdapterName(), stats.Elapsed.Round(time.Millisecond),
		stats.FPS(), stats.BlockedWaits, stats.Flushes)

	if output != "" && stats.Frames > 0 {
		lastSlot := int((stats.Frames - 1) % uint64(framesInFlight))
		img, err := renderer.Snapshot(pacer.Tracker(), lastSlot, timeout)
		if err != nil {
			return err
		}
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			return err
		}
		log.Printf("saved last frame to %s (%dx%d)", output, width, height)
	}
	return nil
}

// clearColor cycles the background slowly so pacing stalls are visible as
// color jumps when watching a capture sequence.
func clearColor(frame uint64) gputypes.Color {
	t := float64(frame) * 0.02
	return gputypes.Color{
		R: 0.1 + 0.1*math.Sin(t),
		G: 0.15 + 0.1*math.Sin(t+2),
		B: 0.25 + 0.1*math.Sin(t+4),
		A: 1,
	}
}
