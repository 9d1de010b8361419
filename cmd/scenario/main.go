package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("scenario run failed", "error", err)
		os.Exit(1)
	}
}
