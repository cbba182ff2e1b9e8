// Command diffcore runs the structural diff engine over two JSON-shaped
// files and prints the classified entries, one per line.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nmxmxh/siliconpath/arena"
	"github.com/nmxmxh/siliconpath/diffengine"
	"github.com/nmxmxh/siliconpath/engine"
	"github.com/nmxmxh/siliconpath/engineconfig"
	"github.com/nmxmxh/siliconpath/enginestatus"
)

func main() {
	app := &cli.App{
		Name:      "diffcore",
		Usage:     "structural diff over two JSON-shaped files",
		ArgsUsage: "<left.json> <right.json>",
		Flags: []cli.Flag{
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
	if c.NArg() != 2 {
		return cli.Exit("usage: diffcore [--edge] <left.json> <right.json>", 2)
	}

	left, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("read left: %v", err), 1)
	}
	right, err := os.ReadFile(c.Args().Get(1))
	if err != nil {
		return cli.Exit(fmt.Sprintf("read right: %v", err), 1)
	}

	cfg := engineconfig.Default()
	if c.Bool("edge") {
		cfg = engineconfig.Edge()
	}

	e, err := engine.New(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("create engine: %v", err), 1)
	}
	defer e.Destroy()

	e.StageLeft(left)
	if status := e.CommitLeft(uint32(len(left))); status != enginestatus.Ok {
		return cli.Exit(fmt.Sprintf("commit_left: %s", status), 1)
	}

	e.StageRight(right)
	if status := e.CommitRight(uint32(len(right))); status != enginestatus.Ok {
		return cli.Exit(fmt.Sprintf("commit_right: %s", status), 1)
	}

	arenaBuf, status := e.Finalize()
	if status != enginestatus.Ok {
		b, _ := e.LastError()
		return cli.Exit(fmt.Sprintf("finalize: %s %s", status, string(b)), 1)
	}

	fmt.Printf("%d entries, %d bytes\n", arenaBuf.EntryCount(), arenaBuf.Len())
	for _, entry := range arena.DecodeEntries(arenaBuf.Bytes()) {
		printEntry(entry, left, right)
	}
	return nil
}

func printEntry(e arena.Entry, left, right []byte) {
	switch e.Op {
	case diffengine.Added:
		fmt.Printf("+ path=%d %q\n", e.PathIDLo, right[e.RightOff:e.RightOff+e.RightLen])
	case diffengine.Removed:
		fmt.Printf("- path=%d %q\n", e.PathIDLo, left[e.LeftOff:e.LeftOff+e.LeftLen])
	case diffengine.Modified:
		fmt.Printf("~ path=%d %q -> %q\n", e.PathIDLo,
			left[e.LeftOff:e.LeftOff+e.LeftLen], right[e.RightOff:e.RightOff+e.RightLen])
	}
}
