package session

import (
	"fmt"
	"sort"
)

// DockerOptions configures a session inside a running container.
type DockerOptions struct {
	Container  string
	Command    string // program to run, default /bin/sh
	User       string
	WorkDir    string
	Env        map[string]string
	Privileged bool
}

// execArgs builds the docker exec argument list with TTY allocation.
func (o DockerOptions) execArgs() []string {
	args := []string{"exec", "-it"}
	if o.User != "" {
		args = append(args, "-u", o.User)
	}
	if o.WorkDir != "" {
		args = append(args, "-w", o.WorkDir)
	}
	keys := make([]string, 0, len(o.Env))
	for k := range o.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, o.Env[k]))
	}
	if o.Privileged {
		args = append(args, "--privileged")
	}
	command := o.Command
	if command == "" {
		command = "/bin/sh"
	}
	return append(args, o.Container, command)
}

// StartDocker attaches a PTY to a shell inside a running container by
// wrapping docker exec. The docker CLI must be on PATH.
func StartDocker(opts DockerOptions) (*LocalTerminal, error) {
	if opts.Container == "" {
		return nil, fmt.Errorf("container name required")
	}
	return StartLocal("docker", opts.execArgs()...)
}
