package ssh

import "testing"

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target   string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"alice@example.com", "alice", "example.com", 22, false},
		{"alice@example.com:2222", "alice", "example.com", 2222, false},
		{"bob@10.0.0.5", "bob", "10.0.0.5", 22, false},
		{"alice@host:0", "", "", 0, true},
		{"alice@host:notaport", "", "", 0, true},
		{"alice@", "", "", 0, true},
	}

	for _, tt := range tests {
		user, host, port, err := ParseTarget(tt.target)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTarget(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
			t.Errorf("ParseTarget(%q) = %q, %q, %d; want %q, %q, %d",
				tt.target, user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
		}
	}
}

func TestParseTarget_DefaultUser(t *testing.T) {
	t.Setenv("USER", "carol")
	user, host, port, err := ParseTarget("server.internal")
	if err != nil {
		t.Fatal(err)
	}
	if user != "carol" || host != "server.internal" || port != 22 {
		t.Errorf("got %q, %q, %d", user, host, port)
	}
}
