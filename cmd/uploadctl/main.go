package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/uploadbroker/internal/buildinfo"
	"github.com/dmitrijs2005/uploadbroker/internal/client/config"
	"github.com/dmitrijs2005/uploadbroker/internal/client/uploader"
	"github.com/dmitrijs2005/uploadbroker/internal/logging"
)

const usage = `usage: uploadctl [-a url] [-k token] [-o owner] [-t type] [-n parts] [-w seconds] FILE...`

func main() {

	buildinfo.PrintBuildData(os.Stderr)

	cfg, files, err := config.LoadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) || (err == nil && len(files) == 0) {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	failed := run(ctx, cfg, files)
	stop()

	if failed > 0 {
		os.Exit(1)
	}
}

// run uploads files one after another and returns how many failed.
func run(ctx context.Context, cfg *config.Config, files []string) int {
	logger := logging.New(os.Stderr, false)
	u := uploader.New(cfg, logger)

	failed := 0
	for _, path := range files {
		uploadCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		session, err := u.UploadFile(uploadCtx, path)
		cancel()

		if err != nil {
			logger.Error(ctx, "upload failed", "file", path, "error", err)
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", path, session.ID, session.DownloadURL)
	}
	return failed
}
