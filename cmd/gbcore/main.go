// Command gbcore is a headless runner for the LR35902 core: it loads a ROM
// (and optional boot ROM), ticks the device to completion or a step limit,
// and reports serial output — the same blargg-style pass/fail detection
// github.com/FabianRolfMatthiasNoll/GameBoyEmulator's cmd/cpurunner used,
// rebuilt on github.com/spf13/cobra instead of the stdlib flag package.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/device"
	"github.com/spf13/cobra"
)

func main() {
	var (
		romPath  string
		bootPath string
		steps    int
		trace    bool
		until    string
		auto     bool
		timeout  time.Duration
	)

	root := &cobra.Command{
		Use:   "gbcore",
		Short: "Headless runner for the LR35902 core",
		RunE: func(cmd *cobra.Command, args []string) error {
			if romPath == "" {
				return fmt.Errorf("--rom is required")
			}
			rom, err := os.ReadFile(romPath)
			if err != nil {
				return fmt.Errorf("read rom: %w", err)
			}
			var boot []byte
			if bootPath != "" {
				boot, err = os.ReadFile(bootPath)
				if err != nil {
					return fmt.Errorf("read bootrom: %w", err)
				}
			}

			d, err := device.New(rom, device.Config{Trace: trace})
			if err != nil {
				return fmt.Errorf("construct device: %w", err)
			}
			if trace {
				d.SetLogger(log.New(os.Stderr, "", 0))
			}

			var serial bytes.Buffer
			d.SetSerialWriter(io.MultiWriter(os.Stdout, &serial))

			if len(boot) >= 0x100 {
				d.SetBootROM(boot)
			} else {
				d.ResetSimulatedBoot()
			}

			failRe := regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
			start := time.Now()
			var deadline time.Time
			if timeout > 0 {
				deadline = start.Add(timeout)
			}

			for i := 0; steps == 0 || i < steps; i++ {
				d.Tick()
				out := serial.String()
				if auto {
					if strings.Contains(strings.ToLower(out), "passed") {
						fmt.Printf("\nPASS after %d ticks (%s)\n", i+1, time.Since(start).Truncate(time.Millisecond))
						return nil
					}
					if m := failRe.FindString(out); m != "" {
						return fmt.Errorf("FAIL: %s", m)
					}
				} else if until != "" && strings.Contains(out, until) {
					fmt.Printf("\nmatched %q after %d ticks\n", until, i+1)
					return nil
				}
				if !deadline.IsZero() && time.Now().After(deadline) {
					return fmt.Errorf("timeout after %s", timeout)
				}
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&romPath, "rom", "", "path to ROM (.gb)")
	flags.StringVar(&bootPath, "bootrom", "", "optional DMG boot ROM to run from 0x0000 until FF50 disables it")
	flags.IntVar(&steps, "steps", 5_000_000, "max device ticks to run (0 = unlimited)")
	flags.BoolVar(&trace, "trace", false, "log PC/cycles for every tick")
	flags.StringVar(&until, "until", "Passed", "stop when serial output contains this substring; empty to disable")
	flags.BoolVar(&auto, "auto", false, "auto-detect 'Passed'/'Failed N tests' in serial output and exit 0/1")
	flags.DurationVar(&timeout, "timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
