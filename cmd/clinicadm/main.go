// clinicadm - command-line console for the clinic services
package main

import "github.com/goliatone/go-clinic-console/internal/cli"

// Build-time variables set via ldflags
var Version = "dev"

func main() {
	cli.Version = Version
	cli.Execute()
}
