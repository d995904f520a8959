package sim

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.starlark.net/starlark"

	"github.com/openlro/openlro/pkg/lro"
)

// Script is a Starlark scenario program controlling the status a simulated
// operation reports. The program must define
//
//	def status(elapsed_seconds, polls):
//	    ...
//
// returning one of "PENDING", "RUNNING", "SUCCEEDED", "FAILED". Anything else
// is passed through verbatim, which the orchestrator resolves into a
// classification failure; scripts can use that to exercise the failure path.
type Script struct {
	name string
	fn   starlark.Callable

	// Starlark values are not safe for concurrent calls.
	mu sync.Mutex
}

// LoadScript reads and executes a scenario file, resolving its status
// function.
func LoadScript(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScript(path, string(src))
}

// ParseScript executes scenario source and resolves its status function.
func ParseScript(name, src string) (*Script, error) {
	thread := &starlark.Thread{Name: "sim-scenario"}
	globals, err := starlark.ExecFile(thread, name, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute scenario: %w", err)
	}

	v, ok := globals["status"]
	if !ok {
		return nil, fmt.Errorf("scenario %s defines no status function", name)
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("scenario %s: status is not callable", name)
	}

	return &Script{name: name, fn: fn}, nil
}

// Status evaluates the scenario for one status check.
func (s *Script) Status(elapsed time.Duration, polls int) (lro.OperationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := &starlark.Thread{Name: "sim-scenario"}
	args := starlark.Tuple{
		starlark.Float(elapsed.Seconds()),
		starlark.MakeInt(polls),
	}

	v, err := starlark.Call(thread, s.fn, args, nil)
	if err != nil {
		return "", fmt.Errorf("scenario %s failed: %w", s.name, err)
	}

	str, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("scenario %s returned %s, want a status string", s.name, v.Type())
	}
	return lro.OperationStatus(str), nil
}
