// Command diffcore-bench runs the diff engine over a corpus of left/right
// file pairs, one engine per pair, behind a circuit breaker that trips
// after five consecutive failed pairs instead of grinding through a corpus
// whose caps are simply misconfigured. Every error counts as a failure: the
// breaker does not tell resource-limit failures apart from read or parse
// failures.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker"
	"github.com/urfave/cli/v2"

	"github.com/nmxmxh/siliconpath/engine"
	"github.com/nmxmxh/siliconpath/engineconfig"
	"github.com/nmxmxh/siliconpath/enginestatus"
)

type pair struct {
	left, right string
}

func main() {
	app := &cli.App{
		Name:  "diffcore-bench",
		Usage: "batch-drive the diff engine over matched left/right corpora",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "left", Required: true, Usage: "directory of left-side JSON files"},
			&cli.StringFlag{Name: "right", Required: true, Usage: "directory of right-side JSON files, matched by name"},
			&cli.BoolFlag{Name: "edge", Usage: "use the lower-memory edge config preset"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	pairs, err := discoverPairs(c.String("left"), c.String("right"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("discover pairs: %v", err), 1)
	}

	cfg := engineconfig.Default()
	if c.Bool("edge") {
		cfg = engineconfig.Edge()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "diffcore-bench",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	var ok, failed, tripped int
	for _, p := range pairs {
		result, err := breaker.Execute(func() (interface{}, error) {
			return diffOne(cfg, p)
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			tripped++
		case err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "%s vs %s: %v\n", p.left, p.right, err)
		default:
			ok++
			fmt.Printf("%s vs %s: %d entries\n", p.left, p.right, result.(uint32))
		}
	}

	fmt.Printf("done: %d ok, %d failed, %d skipped (breaker open)\n", ok, failed, tripped)
	if tripped > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func diffOne(cfg engineconfig.Config, p pair) (uint32, error) {
	left, err := os.ReadFile(p.left)
	if err != nil {
		return 0, err
	}
	right, err := os.ReadFile(p.right)
	if err != nil {
		return 0, err
	}

	e, err := engine.New(cfg)
	if err != nil {
		return 0, fmt.Errorf("create engine: %w", err)
	}
	defer e.Destroy()

	e.StageLeft(left)
	if status := e.CommitLeft(uint32(len(left))); status != enginestatus.Ok {
		return 0, fmt.Errorf("commit_left: %s", status)
	}
	e.StageRight(right)
	if status := e.CommitRight(uint32(len(right))); status != enginestatus.Ok {
		return 0, fmt.Errorf("commit_right: %s", status)
	}

	a, status := e.Finalize()
	if status != enginestatus.Ok {
		b, _ := e.LastError()
		return 0, fmt.Errorf("finalize: %s: %s", status, string(b))
	}
	return a.EntryCount(), nil
}

func discoverPairs(leftDir, rightDir string) ([]pair, error) {
	entries, err := os.ReadDir(leftDir)
	if err != nil {
		return nil, err
	}

	var pairs []pair
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		rightPath := filepath.Join(rightDir, ent.Name())
		if _, err := os.Stat(rightPath); err != nil {
			continue
		}
		pairs = append(pairs, pair{
			left:  filepath.Join(leftDir, ent.Name()),
			right: rightPath,
		})
	}
	return pairs, nil
}
