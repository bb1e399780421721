// Command acmecore is a thin command-line driver over the acmecore
// session, grounded on the teacher's cmd/acme: directory inspection, raw
// GET dispatch, and an interactive shell for poking at a CA by hand.
package main

import (
	acmecore "github.com/modmd/acmecore"
	"go.n16f.net/program"
)

var (
	p       *program.Program
	session *acmecore.Session
)

func main() {
	p = program.NewProgram("acmecore", "ACME protocol session client")

	p.AddOption("s", "server", "uri",
		"https://acme-v02.api.letsencrypt.org/directory",
		"the directory URI of the ACME server")
	p.AddOption("d", "data-store", "path", "acmecore",
		"the path of the account data store directory")

	addDirectoryCommand()
	addGetCommand()
	addShellCommand()

	p.ParseCommandLine()

	dataStorePath := p.OptionValue("data-store")
	if _, err := acmecore.NewFileSystemStore(dataStorePath); err != nil {
		p.Fatal("cannot create data store: %v", err)
	}

	var err error

	session, err = acmecore.NewSession(acmecore.SessionCfg{
		BaseURL: p.OptionValue("server"),
	})
	if err != nil {
		p.Fatal("cannot create session: %v", err)
	}

	p.Run()
}
