// Command lumen-lower runs ownership-lowering scenarios and prints the
// emitted IR. It is a debugging aid for the lowering layer: feed it a
// scenario YAML and inspect where retains, releases, borrows, and
// destroys land.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/internal/scenario"
)

var version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		traceFlag   = flag.Bool("trace-cleanups", false, "log cleanup stack activity")
		watchFlag   = flag.Bool("watch", false, "re-run scenarios when their files change")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("lumen-lower %s\n", version)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lumen-lower [-watch] [-trace-cleanups] scenario.yaml ...")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *traceFlag {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "lumen-lower: logger: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	runAll := func() bool {
		ok := true
		for _, f := range files {
			if err := runFile(f, logger); err != nil {
				fmt.Fprintf(os.Stderr, "lumen-lower: %v\n", err)
				ok = false
			}
		}
		return ok
	}

	if ok := runAll(); !*watchFlag {
		if !ok {
			os.Exit(1)
		}
		return
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen-lower: watch: %v\n", err)
		os.Exit(1)
	}
	defer w.Close()
	for _, f := range files {
		if err := w.Add(f); err != nil {
			fmt.Fprintf(os.Stderr, "lumen-lower: watch %s: %v\n", f, err)
			os.Exit(1)
		}
	}
	logger.Info("watching scenarios", zap.Int("files", len(files)))

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				logger.Info("scenario changed", zap.String("path", ev.Name))
				runAll()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "lumen-lower: watch: %v\n", err)
		}
	}
}

func runFile(path string, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := scenario.Load(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	out, err := scenario.Run(doc, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Print(out)
	return nil
}
