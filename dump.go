package nutriplan

import (
	"fmt"
	"io"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Dump writes a labelled, caller-annotated deep print of v to w. Used by the
// local CLI to inspect intermediate planning values.
func Dump(w io.Writer, label string, v ...any) {
	_, file, line, _ := runtime.Caller(1)
	fmt.Fprintf(w, "%s:%d: %s\n", file, line, label)
	dumpConfig.Fdump(w, v...)
}
