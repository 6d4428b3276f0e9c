// cli.go - §6 CLI surface (manual os.Args parsing, no flag library, per
// the teacher's own main.go convention of a fixed positional/token scan)
package main

import "fmt"

// cliOptions is the parsed form of the present-orchestrator CLI surface.
// Everything here is a display/benchmark knob; the pipeline's own
// behavior is still governed entirely by Config (environment).
type cliOptions struct {
	Output     string // tcp | screen | headless
	TCPAddr    string
	RasterPath string // bench-sw | bench-hw
	FullRes    bool   // native320 (false) | fullres (true)
	Scale      int
	Async      bool // async-present (true, default) | sync-present (false)
	PLScale    bool
	PLLanes    int
	NoClient   bool
	BenchHeadless bool
	FrameCount int // 0 = run until interrupted
	scaleSet   bool
}

func defaultCLIOptions() cliOptions {
	return cliOptions{
		Output:     "headless",
		RasterPath: "bench-sw",
		Scale:      1,
		Async:      true,
		PLLanes:    1,
		FrameCount: 0,
	}
}

// parseCLIArgs scans args (os.Args[1:]) token by token; unrecognized
// tokens are reported as errors rather than silently ignored.
func parseCLIArgs(args []string) (cliOptions, error) {
	opt := defaultCLIOptions()

	for i := 0; i < len(args); i++ {
		tok := args[i]
		switch tok {
		case "tcp":
			opt.Output = "tcp"
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] == ':' {
				i++
				opt.TCPAddr = args[i]
			}
		case "screen":
			opt.Output = "screen"
		case "headless":
			opt.Output = "headless"
		case "bench-sw":
			opt.RasterPath = "bench-sw"
		case "bench-hw":
			opt.RasterPath = "bench-hw"
		case "native320":
			opt.FullRes = false
			if !opt.scaleSet {
				opt.Scale = 1
			}
		case "fullres":
			opt.FullRes = true
			if !opt.scaleSet {
				opt.Scale = PRESENT_SCALE
			}
		case "async-present":
			opt.Async = true
		case "sync-present":
			opt.Async = false
		case "pl-scale":
			opt.PLScale = true
		case "pl-lanes":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("cli: pl-lanes requires a value")
			}
			switch args[i] {
			case "1":
				opt.PLLanes = 1
			case "4":
				opt.PLLanes = 4
			default:
				opt.PLLanes = 4 // clamp, per §6
			}
		case "no-client":
			opt.NoClient = true
			opt.Output = "headless"
		case "bench-headless":
			opt.BenchHeadless = true
			opt.Output = "headless"
			if opt.FrameCount == 0 {
				opt.FrameCount = 600
			}
		default:
			var n int
			if _, err := fmt.Sscanf(tok, "%d", &n); err == nil && n > 0 {
				opt.Scale = n
				opt.scaleSet = true
				continue
			}
			return opt, fmt.Errorf("cli: unrecognized argument %q", tok)
		}
	}
	return opt, nil
}

// applyToConfig folds the CLI-derived scaling/path knobs into cfg,
// which otherwise comes entirely from the environment (config.go).
func (opt cliOptions) applyToConfig(cfg *Config) {
	cfg.PresentScale = opt.Scale
	cfg.PresentUsePL = opt.PLScale
	cfg.PresentLanes = opt.PLLanes
	if opt.RasterPath == "bench-hw" {
		cfg.RasterBackend = "hw"
	} else {
		cfg.RasterBackend = "sw"
	}
}
