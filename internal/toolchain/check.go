package toolchain

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary the pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

func Requirements(minyami, mkvmerge, ffmpeg string) []Requirement {
	return []Requirement{
		{Name: "minyami", Command: minyami, Description: "HLS segment downloader"},
		{Name: "mkvmerge", Command: mkvmerge, Description: "Matroska remuxer"},
		{Name: "ffmpeg", Command: ffmpeg, Description: "MP4 container conversion"},
	}
}

// Check resolves every requirement on PATH.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		if req.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(req.Command)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the names of unavailable tools.
func Missing(statuses []Status) []string {
	var names []string
	for _, s := range statuses {
		if !s.Available {
			names = append(names, s.Name)
		}
	}
	return names
}
