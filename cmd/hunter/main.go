// Command hunter finds recent, modestly viewed YouTube videos for a keyword,
// scores their audience region and keeps the qualifying ones in a local store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ad-tracker/video-hunter-go/pkg/logger"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	_ = logger.Sync()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
