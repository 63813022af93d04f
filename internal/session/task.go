// File: internal/session/task.go
package session

import (
	"path/filepath"
	"time"

	"github.com/mlaterman/clickpilot/internal/config"
	"github.com/mlaterman/clickpilot/internal/content"
	"github.com/mlaterman/clickpilot/internal/executor"
)

// buildSaveTask assembles the interaction sequence that opens the detected
// application and saves one post into the output directory: double-click the
// icon, wait for the window, type the content, drive the save dialog, close.
func buildSaveTask(cfg *config.Config, appName string, post content.Post, outputDir string) executor.TaskDescriptor {
	body := post.FormatBody()
	path := executor.SafePath(filepath.Join(outputDir, post.FileName()))

	return executor.TaskDescriptor{
		AppName: appName,
		Sequence: []executor.Action{
			{Kind: executor.ActionMove},
			{Kind: executor.ActionClick, Double: true},
			{Kind: executor.ActionWaitForFocus, TitleSubstring: appName, Timeout: cfg.Executor.FocusTimeout},
			{Kind: executor.ActionTypeText, Text: body},
			{Kind: executor.ActionSaveAs, Path: path, ExpectedContent: body},
			{Kind: executor.ActionKeyChord, Key: "f4", Modifiers: []string{"alt"}},
			{Kind: executor.ActionDelay, Duration: 600 * time.Millisecond},
		},
	}
}
