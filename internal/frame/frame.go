// Package frame wraps user Python source so that real program output can be
// told apart from interpreter noise (banners, tracebacks) in the captured
// process streams.
//
// The wrapper redirects sys.stdout into an in-memory buffer while the user
// code runs, then emits the buffered text between unique sentinel markers.
// Uncaught exceptions are reported between a separate sentinel pair. The
// companion extraction functions scan raw process output for those pairs.
package frame

import (
	"encoding/json"
	"strings"
)

// Sentinel markers. They only need to be unlikely in real output — the
// extractor falls back gracefully if they never appear.
const (
	outputStart = "##OUTPUT_START##"
	outputEnd   = "##OUTPUT_END##"
	errorStart  = "##ERROR_START##"
	errorEnd    = "##ERROR_END##"
)

// codeMarker is replaced by the JSON-quoted user source. JSON string escaping
// is a subset of Python string escaping, so the literal drops straight into
// the wrapper and exec(compile(...)) runs the original source unmodified.
const codeMarker = "__USER_CODE_LITERAL__"

// The wrapper must restore sys.stdout on every path (the finally block) —
// otherwise a failure inside the except branch would swallow its own report.
// sys.exit(1) after a caught exception makes the interpreter exit non-zero so
// runtime failures are visible in the exit code as well as the error segment.
const wrapper = `import io
import sys
import traceback

_stdout = sys.stdout
_buffer = io.StringIO()
sys.stdout = _buffer
try:
    exec(compile(` + codeMarker + `, "<script>", "exec"), {"__name__": "__main__"})
    sys.stdout = _stdout
    print("` + outputStart + `")
    print(_buffer.getvalue(), end="")
    print("` + outputEnd + `")
except BaseException as exc:
    sys.stdout = _stdout
    print("` + errorStart + `")
    print(type(exc).__name__ + ": " + str(exc))
    print("` + errorEnd + `")
    traceback.print_exc()
    sys.exit(1)
finally:
    sys.stdout = _stdout
`

// Wrap produces the augmented script for the given user source.
func Wrap(code string) string {
	// json.Marshal on a string cannot fail.
	literal, _ := json.Marshal(code)
	return strings.Replace(wrapper, codeMarker, string(literal), 1)
}

// ExtractOutput returns the user output embedded in raw process output.
// If no complete sentinel pair is present (the process died before the
// wrapper could report), it falls back to the trimmed whole text.
func ExtractOutput(raw string) string {
	if segment, ok := between(raw, outputStart, outputEnd); ok {
		return strings.TrimSpace(segment)
	}
	return strings.TrimSpace(raw)
}

// ExtractError returns the error description embedded in raw process output
// and whether one was found. There is no fallback: absence of the sentinel
// pair means the wrapper did not observe an exception.
func ExtractError(raw string) (string, bool) {
	segment, ok := between(raw, errorStart, errorEnd)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(segment), true
}

// HasOutput reports whether a complete output sentinel pair is present.
func HasOutput(raw string) bool {
	_, ok := between(raw, outputStart, outputEnd)
	return ok
}

func between(raw, start, end string) (string, bool) {
	i := strings.Index(raw, start)
	if i < 0 {
		return "", false
	}
	rest := raw[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}
