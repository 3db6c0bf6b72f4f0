// Package maintenance sweeps scratch directories that runs left behind,
// e.g. after a crash or with keep_workspace enabled.
package maintenance

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"video-narrator/log"
)

const DefaultSchedule = "@every 1h"

type Janitor struct {
	Roots     []string
	Retention time.Duration
	// Keep, when set, spares expired entries it reports true for.
	Keep func(path string) bool

	now  func() time.Time
	cron *cron.Cron
}

func NewJanitor(retention time.Duration, roots ...string) *Janitor {
	return &Janitor{
		Roots:     roots,
		Retention: retention,
		now:       time.Now,
	}
}

// Start runs Sweep on schedule until Stop. A non-positive retention
// disables sweeping.
func (j *Janitor) Start(schedule string) error {
	if j.Retention <= 0 {
		log.GetLogger().Info("workspace sweeping disabled")
		return nil
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { j.Sweep() }); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	log.GetLogger().Info("workspace janitor started",
		zap.String("schedule", schedule), zap.Duration("retention", j.Retention))
	return nil
}

func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// Sweep removes every entry directly under the roots that was last
// modified before the retention window. It returns how many it removed.
func (j *Janitor) Sweep() int {
	cutoff := j.now().Add(-j.Retention)
	removed := 0
	for _, root := range j.Roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if !os.IsNotExist(err) {
				log.GetLogger().Warn("read sweep root failed", zap.String("root", root), zap.Error(err))
			}
			continue
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if j.Keep != nil && j.Keep(path) {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				log.GetLogger().Warn("remove expired entry failed", zap.String("path", path), zap.Error(err))
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		log.GetLogger().Info("swept expired workspaces", zap.Int("removed", removed))
	}
	return removed
}
