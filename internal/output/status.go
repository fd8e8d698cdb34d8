package output

import (
	"context"
	"fmt"
	"time"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

func PrettySampleStatus(samples uint64, rate float64, running, idle uint64) string {
	return fmt.Sprintf("\r%-24s %-22s %-18s %-18s",
		fmt.Sprintf("Samples: %8d", samples),
		fmt.Sprintf("Samples/s: %7.1f", rate),
		fmt.Sprintf("Running: %6d", running),
		fmt.Sprintf("Idle: %6d", idle),
	)
}
