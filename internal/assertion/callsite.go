package assertion

import (
	"path/filepath"
	"runtime"
	"strconv"
)

// CallSite is the source location of one assertion.
type CallSite struct {
	File string
	Line int
}

// Here returns the location skip frames above its caller. Here(0) is the
// line calling Here, Here(1) the line calling that function.
func Here(skip int) CallSite {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return CallSite{}
	}
	return CallSite{File: filepath.Base(file), Line: line}
}

// String formats the location as file:line.
func (c CallSite) String() string {
	if c.File == "" {
		return "unknown"
	}
	return c.File + ":" + strconv.Itoa(c.Line)
}
