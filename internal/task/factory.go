package task

import (
	"context"
	"fmt"

	"github.com/starford/quire/internal/fsops"
)

// Copy returns a task copying every file matching sourceGlob into destDir,
// keeping paths relative to the glob's static base.
func Copy(sourceGlob, destDir string) *Task {
	return New("copy:"+sourceGlob, func(ctx context.Context) error {
		return fsops.Copy(ctx, sourceGlob, destDir)
	}).WithDisplayName(fmt.Sprintf("copy %s -> %s", sourceGlob, destDir))
}

// Clean returns a task force-deleting every path matching targetGlob.
// Deleting an absent path succeeds.
func Clean(targetGlob string) *Task {
	return New("clean:"+targetGlob, func(ctx context.Context) error {
		return fsops.Remove(ctx, targetGlob)
	}).WithDisplayName("clean " + targetGlob)
}
