package main

import (
	"context"

	"go.n16f.net/program"
)

func addDirectoryCommand() {
	p.AddCommand("directory", "fetch and print the ACME directory", cmdDirectory)
}

func cmdDirectory(p *program.Program) {
	if err := session.Setup(context.Background()); err != nil {
		p.Fatal("cannot fetch directory: %v", err)
	}

	t := program.NewKeyValueTable()

	t.AddRow("dialect", session.Dialect().String())
	t.AddRow("base URL", session.BaseURL())
	t.AddRow("terms of service", session.CAAgreement())
	t.AddRow("short name", session.ShortName())

	t.Print()
}
