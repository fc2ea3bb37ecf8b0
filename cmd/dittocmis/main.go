// Command dittocmis drives a DittoCMIS repository from the command line.
//
// Every repository operation is exposed as a subcommand. Objects are addressed
// either by id or by an absolute path:
//
//	dittocmis init
//	dittocmis mkdir / reports
//	dittocmis put /reports q1.pdf
//	dittocmis checkout /reports/q1.pdf
//	dittocmis checkin /reports/q1.pdf --file q1-final.pdf --major -m "final"
//	dittocmis versions /reports/q1.pdf
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/dittocmis/pkg/cmis"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if code, ok := cmis.CodeOf(err); ok {
			fmt.Fprintf(os.Stderr, "Error (%s): %v\n", code, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
