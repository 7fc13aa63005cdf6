package safety

import (
	"testing"
)

func TestFilter_Classify(t *testing.T) {
	f, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		command string
		want    Verdict
	}{
		{"plain ls", "ls -la", Safe},
		{"rm in tmp", "rm -rf /tmp/build", Safe},
		{"rm root", "rm -rf /", Destructive},
		{"rm root glob", "rm -rf /*", Destructive},
		{"rm home", "rm -rf ~/projects", Destructive},
		{"dd to disk", "dd if=/dev/zero of=/dev/sda bs=1M", Destructive},
		{"mkfs", "mkfs.ext4 /dev/sdb1", Destructive},
		{"fork bomb", ":(){ :|:& };:", Destructive},
		{"redirect to disk", "cat image.img > /dev/sda", Destructive},
		{"chmod root", "chmod -R 777 /", Destructive},
		{"chmod project", "chmod -R 755 ./dist", Safe},
		{"uppercase", "DD if=/dev/zero OF=/dev/sda", Destructive},
		{"empty", "", Safe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pattern := f.Classify(tt.command)
			if got != tt.want {
				t.Errorf("Classify(%q) = %v (pattern %q), want %v", tt.command, got, pattern, tt.want)
			}
			if got == Destructive && pattern == "" {
				t.Errorf("Classify(%q) destructive without a matched pattern", tt.command)
			}
		})
	}
}

func TestFilter_ExtraPatterns(t *testing.T) {
	f, err := New([]string{`shutdown\s+-h`})
	if err != nil {
		t.Fatal(err)
	}

	if v, _ := f.Classify("shutdown -h now"); v != Destructive {
		t.Error("extra pattern not applied")
	}
	if v, _ := f.Classify("rm -rf /"); v != Destructive {
		t.Error("defaults lost when extras are supplied")
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	if _, err := New([]string{"("}); err == nil {
		t.Error("New() with invalid regex should fail")
	}
}
