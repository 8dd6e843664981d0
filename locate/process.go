package locate

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// psTable is the ProcessTable backed by the operating system
type psTable struct{}

// NewProcessTable returns a ProcessTable reading the live process list
func NewProcessTable() ProcessTable {
	return psTable{}
}

// Processes returns the running processes.  Processes that exit or deny
// access while the table is being read are skipped.
func (psTable) Processes() ([]Process, error) {

	procs, err := process.Processes()

	if err != nil {
		return nil, errors.Wrap(err, "error reading process table")
	}

	out := make([]Process, 0, len(procs))

	for _, p := range procs {
		name, err := p.Name()

		if err != nil {
			continue
		}

		out = append(out, Process{PID: p.Pid, Name: name})
	}

	return out, nil
}

// Exists reports whether pid is running
func (psTable) Exists(pid int32) (bool, error) {
	return process.PidExists(pid)
}
