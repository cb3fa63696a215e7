// Package cron provides the cron provider: maintenance jobs rendered as
// /etc/cron.d drop-ins.
package cron

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultCronDir is where job files are rendered.
const DefaultCronDir = "/etc/cron.d"

// jobNameRegex matches names run-parts will accept as cron.d files.
var jobNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// Job represents one scheduled maintenance job.
type Job struct {
	Name     string
	Schedule string
	User     string
	Command  string
}

// Config represents the cron section of the manifest.
type Config struct {
	Dir  string
	Jobs []Job
}

// ParseConfig parses the cron configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{Dir: DefaultCronDir}

	if dir, ok := raw["dir"]; ok {
		s, ok := dir.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("dir must be a non-empty string")
		}
		cfg.Dir = s
	}

	rawJobs, ok := raw["jobs"]
	if !ok {
		return cfg, nil
	}
	jobsMap, ok := rawJobs.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("jobs must be a map")
	}

	names := make([]string, 0, len(jobsMap))
	for name := range jobsMap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !jobNameRegex.MatchString(name) {
			return nil, fmt.Errorf("job name %q is not a valid cron.d file name", name)
		}
		jobMap, ok := jobsMap[name].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("job %s must be a map", name)
		}

		job := Job{Name: name, User: "root"}
		if schedule, ok := jobMap["schedule"].(string); ok {
			job.Schedule = schedule
		} else {
			return nil, fmt.Errorf("job %s must have a schedule", name)
		}
		if command, ok := jobMap["command"].(string); ok {
			job.Command = command
		} else {
			return nil, fmt.Errorf("job %s must have a command", name)
		}
		if user, ok := jobMap["user"].(string); ok {
			job.User = user
		}

		cfg.Jobs = append(cfg.Jobs, job)
	}

	return cfg, nil
}
