// Command import loads a CSV file of cards into the catalog and prints the
// result as JSON.
//
//	import -file cards.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/collector/internal/config"
	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/images"
	"github.com/JonMunkholm/collector/internal/logging"
	"github.com/JonMunkholm/collector/internal/store/connect"
)

func main() {
	file := flag.String("file", "", "CSV file to import")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: import -file cards.csv")
		os.Exit(2)
	}

	if err := run(*file); err != nil {
		reportError(slog.Default(), os.Stderr, err)
		os.Exit(1)
	}
}

// reportError logs the technical cause and prints the user message to w.
func reportError(logger *slog.Logger, w io.Writer, err error) {
	ue := core.NewUserError(err)
	logger.Error("import failed", "error", ue.Technical, "code", ue.User.Code)
	fmt.Fprintf(w, "import failed: %s\n", core.FormatUserError(ue))
}

func run(path string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only the result.
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := connect.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	resolver, _, err := images.New(cfg.Images, logger)
	if err != nil {
		return err
	}

	service := core.NewService(st, core.NewImporter(st, resolver, logger), nil, cfg.Import, logger)
	res, err := service.ImportFile(ctx, path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
