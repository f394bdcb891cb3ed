// Command sqlcond compiles condition documents to SQL WHERE fragments and
// runs them against MySQL, PostgreSQL or SQLite.
package main

import (
	"os"

	"github.com/roach88/sqlcond/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
