package core

import (
	"context"
	"fmt"
)

// PipelineRegistry makes an example Registry that's useful to have
// around.
//
// It models a tiny film-production layout: jobs on disk, shots and
// configuration under each job, and a "dev" assignment that layers
// extra data over the job root.  One action, "tryme", is attached to
// the job hierarchy.
func PipelineRegistry() (*Registry, error) {
	r := NewRegistry()

	plugins := []*Plugin{
		{
			Name:        "job_root",
			Source:      "example",
			Hierarchy:   "job",
			Mapping:     "/jobs/{JOB}",
			PathMapping: true,
			Details: map[string]TokenDetail{
				"JOB": {
					Mapping: "{JOB_NAME}_{JOB_ID}",
				},
				"JOB_NAME": {
					Parse: map[string]string{
						ParseRegex: `\w+`,
					},
				},
				"JOB_ID": {
					Parse: map[string]string{
						ParseRegex: `\d{3}`,
					},
				},
			},
			Data: map[string]interface{}{
				"doc": "The root of a job on disk.",
			},
		},
		{
			Name:        "shot",
			Source:      "example",
			Hierarchy:   RootToken + "/shot",
			Uses:        []Hierarchy{"job"},
			Mapping:     RootToken + "/shots/{SHOT}",
			PathMapping: true,
			Details: map[string]TokenDetail{
				"SHOT": {
					Parse: map[string]string{
						ParseRegex: `sh\d+`,
					},
				},
			},
		},
		{
			Name:        "config",
			Source:      "example",
			Hierarchy:   RootToken + "/config",
			Uses:        []Hierarchy{"job", "job/shot"},
			Mapping:     RootToken + "/config",
			PathMapping: true,
		},
		{
			Name:       "job_dev",
			Source:     "example",
			Hierarchy:  "job",
			Assignment: "dev",
			Data: map[string]interface{}{
				"sandbox": true,
			},
		},
	}

	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}

	tryme := &FuncAction{
		ActionName: "tryme",
		F: func(ctx context.Context, c *Context, args map[string]interface{}) (interface{}, error) {
			return fmt.Sprintf(`hello from "%s"`, c.Hierarchy()), nil
		},
	}
	if err := r.RegisterAction("job", "", tryme); err != nil {
		return nil, err
	}

	return r, nil
}
