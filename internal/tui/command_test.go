package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: CmdQuit}},
		{"  Q ", Command{Name: CmdQuit}},
		{"search  exam week ", Command{Name: CmdSearch, Args: "exam week"}},
		{"s exam", Command{Name: CmdSearch, Args: "exam"}},
		{"open teacher_2", Command{Name: CmdChat, Args: "teacher_2"}},
		{"users ada", Command{Name: CmdFind, Args: "ada"}},
		{"active", Command{Name: CmdActive}},
		{"bogus arg", Command{Name: "bogus", Args: "arg"}},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.in); got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
