// File: internal/executor/files.go
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/abort"
)

// SafePath returns base when it is free, otherwise the first available
// "<stem>_retry_N" variant (N=1..5). When every fallback is taken it returns
// base again and lets the overwrite prompt deal with it.
func SafePath(base string) string {
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; i <= 5; i++ {
		alt := fmt.Sprintf("%s_retry_%d%s", stem, i, ext)
		if _, err := os.Stat(alt); os.IsNotExist(err) {
			return alt
		}
	}
	return base
}

// verifySaved re-reads the saved file until its content matches what was
// typed, bounded by the configured retry count. The dialog may still be
// flushing to disk on the first check.
func (e *Executor) verifySaved(ctx context.Context, path, expected string, sig *abort.Signal) error {
	var lastErr error
	for i := 1; i <= e.cfg.VerifyRetries; i++ {
		if sig.Raised() || ctx.Err() != nil {
			return context.Canceled
		}
		e.logger.Debug("Verifying saved file", zap.String("path", path), zap.Int("attempt", i))

		data, err := os.ReadFile(path)
		switch {
		case err != nil:
			lastErr = err
		case string(data) == expected:
			e.logger.Info("Saved file verified", zap.String("path", path))
			return nil
		default:
			lastErr = fmt.Errorf("content mismatch (%d bytes on disk, %d expected)", len(data), len(expected))
		}

		if err := sleep(ctx, e.cfg.VerifyInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: saved file %s not verified: %v", ErrInputInjection, path, lastErr)
}
