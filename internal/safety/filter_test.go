package safety

import "testing"

func TestCheckRejects(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"import os", "import os; os.system('ls')"},
		{"import subprocess", "import subprocess\nsubprocess.run(['rm', '-rf', '/'])"},
		{"from os import", "from os import system"},
		{"indented import", "if True:\n    import sys"},
		{"dunder import", "__import__('os').system('ls')"},
		{"eval", "eval('1+1')"},
		{"exec", "exec('print(1)')"},
		{"compile", "compile('x', '<s>', 'exec')"},
		{"open", "open('/etc/passwd').read()"},
		{"input", "name = input('? ')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, rejected := Check(tt.code)
			if !rejected {
				t.Errorf("Check(%q) accepted, want rejection", tt.code)
			}
			if reason == "" {
				t.Error("Check() rejected without a reason")
			}
		})
	}
}

func TestCheckAccepts(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"hello world", `print("hello")`},
		{"arithmetic", "x = 1 / 3\nprint(x)"},
		{"import inside identifier", "importance = 5\nprint(importance)"},
		{"os as substring", "cost = 10\nprint(cost)"},
		{"evaluate as identifier", "evaluate = lambda x: x\nprint(evaluate(1))"},
		{"math import", "import math\nprint(math.pi)"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if reason, rejected := Check(tt.code); rejected {
				t.Errorf("Check(%q) rejected (%s), want accept", tt.code, reason)
			}
		})
	}
}

// The denylist is pattern-based and known to be incomplete. This test pins
// that down so nobody mistakes it for a security boundary: an obfuscated
// equivalent of a banned construct passes the filter.
func TestCheckIsBypassable(t *testing.T) {
	obfuscated := `getattr(__builtins__, "ev" + "al")("1+1")`
	if _, rejected := Check(obfuscated); rejected {
		t.Skip("pattern set grew stronger than documented")
	}
}
