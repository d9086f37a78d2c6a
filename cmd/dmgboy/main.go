// Command dmgboy hosts the core: `run` opens an ebiten window, `trace` drives
// it headlessly for CPU/serial-output test automation.
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

	"github.com/urfave/cli/v2"

	"github.com/gharland/dmgcore/internal/gameboy"
	"github.com/gharland/dmgcore/internal/ui"
)

func main() {
	app := &cli.App{
		Name:  "dmgboy",
		Usage: "a Game Boy (DMG) core",
		Commands: []*cli.Command{
			runCommand(),
			traceCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadROM(path string) (*gameboy.GameBoy, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rom: %w", err)
	}
	g := gameboy.New(gameboy.Config{})
	if err := g.LoadRom(rom); err != nil {
		return nil, fmt.Errorf("load rom: %w", err)
	}
	return g, nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "open a window and play a ROM",
		ArgsUsage: "<rom.gb>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Value: "dmgboy"},
			&cli.IntFlag{Name: "scale", Value: 3},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("usage: dmgboy run <rom.gb>", 2)
			}
			g, err := loadROM(c.Args().First())
			if err != nil {
				return cli.Exit(err, 1)
			}
			cfg := ui.Config{Title: c.String("title"), Scale: c.Int("scale")}
			app := ui.NewApp(cfg, g)
			return app.Run()
		},
	}
}

// writerFunc adapts a function to io.Writer.
type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func traceCommand() *cli.Command {
	return &cli.Command{
		Name:      "trace",
		Usage:     "run a ROM headlessly, watching serial output for pass/fail markers",
		ArgsUsage: "<rom.gb>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "steps", Value: 5_000_000, Usage: "max core steps to run"},
			&cli.BoolFlag{Name: "trace", Usage: "print total cycles, LY and PPU mode after each step"},
			&cli.StringFlag{Name: "until", Value: "Passed", Usage: "stop when serial output contains this substring; empty to disable"},
			&cli.BoolFlag{Name: "auto", Usage: "detect 'Passed'/'Failed N tests' in serial output and exit 0/1"},
			&cli.DurationFlag{Name: "timeout", Usage: "wall-clock timeout, 0 disables"},
			&cli.IntFlag{Name: "serialWindow", Value: 8192, Usage: "bytes of serial output retained for failure diagnostics"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("usage: dmgboy trace <rom.gb>", 2)
			}
			g, err := loadROM(c.Args().First())
			if err != nil {
				return cli.Exit(err, 1)
			}

			until := c.String("until")
			auto := c.Bool("auto")
			var ser bytes.Buffer
			serialWindow := c.Int("serialWindow")
			if serialWindow < 256 {
				serialWindow = 256
			}
			serRing := make([]byte, serialWindow)
			serRingIdx, serRingFill := 0, 0
			w := io.Writer(os.Stdout)
			if until != "" || auto {
				w = io.MultiWriter(os.Stdout, &ser, writerFunc(func(p []byte) (int, error) {
					for _, ch := range p {
						serRing[serRingIdx] = ch
						serRingIdx = (serRingIdx + 1) % serialWindow
						if serRingFill < serialWindow {
							serRingFill++
						}
					}
					return len(p), nil
				}))
			}
			g.Bus().SetSerialWriter(w)

			start := time.Now()
			var deadline time.Time
			if t := c.Duration("timeout"); t > 0 {
				deadline = start.Add(t)
			}
			failRe := regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
			trace := c.Bool("trace")
			steps := c.Int("steps")

			for i := 0; i < steps; i++ {
				if err := g.Step(); err != nil {
					fmt.Printf("\ncore halted: %v\n", err)
					return cli.Exit(err, 1)
				}
				if trace {
					s := g.Stats()
					fmt.Printf("cyc=%d LY=%d mode=%d\n", s.TotalCycles, s.LY, s.PPUMode)
				}
				if auto {
					out := ser.String()
					if strings.Contains(strings.ToLower(out), "passed") {
						fmt.Printf("\nDetected PASS in serial output.\nDone: steps=%d elapsed=%s\n", i+1, time.Since(start).Truncate(time.Millisecond))
						return nil
					}
					if m := failRe.FindStringSubmatch(out); m != nil {
						fmt.Printf("\nDetected %s in serial output.\n", m[0])
						if serRingFill > 0 {
							fmt.Printf("\n--- recent serial (last %d bytes) ---\n", serRingFill)
							from := (serRingIdx - serRingFill + serialWindow) % serialWindow
							for j := 0; j < serRingFill; j++ {
								fmt.Printf("%c", serRing[(from+j)%serialWindow])
							}
							fmt.Printf("\n--- end serial ---\n")
						}
						return cli.Exit(fmt.Sprintf("Done: steps=%d elapsed=%s", i+1, time.Since(start).Truncate(time.Millisecond)), 1)
					}
				} else if until != "" && strings.Contains(strings.ToLower(ser.String()), strings.ToLower(until)) {
					fmt.Printf("\nDetected %q in serial output.\nDone: steps=%d elapsed=%s\n", until, i+1, time.Since(start).Truncate(time.Millisecond))
					return nil
				}
				if !deadline.IsZero() && time.Now().After(deadline) {
					fmt.Printf("\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
					return cli.Exit("timeout", 2)
				}
			}
			fmt.Printf("\nDone: steps=%d elapsed=%s\n", steps, time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}
}
