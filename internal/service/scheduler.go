package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
	"github.com/haatos/mybucketapp/internal/stack"
)

func NewScheduler() gocron.Scheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal(err)
	}
	return scheduler
}

type Differ interface {
	Diff(context.Context, string, ...string) ([]StackDiff, error)
}

// ScheduleDriftChecks registers a cron job per environment that declares a
// drift schedule. Each run compares the synthesized templates with the live
// stacks and logs what differs. It returns the job ids keyed by environment.
func ScheduleDriftChecks(
	scheduler gocron.Scheduler,
	differ Differ,
	envs []stack.EnvironmentConfig,
) (map[string]string, error) {
	jobs := make(map[string]string)
	for _, env := range envs {
		if env.DriftSchedule == "" {
			continue
		}
		name := env.Name
		job, err := scheduler.NewJob(
			gocron.CronJob(env.DriftSchedule, false),
			gocron.NewTask(func() {
				RunDriftCheck(context.Background(), differ, name)
			}),
			gocron.WithName("drift-"+name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("error scheduling drift check for %s: %+w", name, err)
		}
		jobs[name] = job.ID().String()
	}
	return jobs, nil
}

// RunDriftCheck diffs every stack of the environment and reports whether any
// change was found.
func RunDriftCheck(ctx context.Context, differ Differ, envName string) bool {
	diffs, err := differ.Diff(ctx, envName)
	if err != nil {
		slog.Error("drift check failed", "environment", envName, "error", err)
		return false
	}
	drifted := false
	for _, d := range diffs {
		if len(d.Changes) == 0 {
			continue
		}
		drifted = true
		for _, c := range d.Changes {
			slog.Warn("drift detected",
				"environment", envName,
				"stack", d.Stack,
				"change", c.String(),
			)
		}
	}
	if !drifted {
		slog.Info("no drift", "environment", envName)
	}
	return drifted
}
