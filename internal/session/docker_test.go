package session

import (
	"strings"
	"testing"
)

func TestDockerExecArgs(t *testing.T) {
	tests := []struct {
		name string
		opts DockerOptions
		want string
	}{
		{
			name: "minimal",
			opts: DockerOptions{Container: "web"},
			want: "exec -it web /bin/sh",
		},
		{
			name: "custom command",
			opts: DockerOptions{Container: "db", Command: "psql"},
			want: "exec -it db psql",
		},
		{
			name: "user and workdir",
			opts: DockerOptions{Container: "app", User: "deploy", WorkDir: "/srv"},
			want: "exec -it -u deploy -w /srv app /bin/sh",
		},
		{
			name: "env sorted",
			opts: DockerOptions{
				Container: "app",
				Env:       map[string]string{"B": "2", "A": "1"},
			},
			want: "exec -it -e A=1 -e B=2 app /bin/sh",
		},
		{
			name: "privileged",
			opts: DockerOptions{Container: "app", Privileged: true},
			want: "exec -it --privileged app /bin/sh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(tt.opts.execArgs(), " "); got != tt.want {
				t.Errorf("execArgs = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartDockerRequiresContainer(t *testing.T) {
	if _, err := StartDocker(DockerOptions{}); err == nil {
		t.Error("StartDocker without a container should fail")
	}
}
