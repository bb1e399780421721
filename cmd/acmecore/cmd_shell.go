package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abiosoft/ishell"
	acmecore "github.com/modmd/acmecore"
	"go.n16f.net/program"
)

func addShellCommand() {
	p.AddCommand("shell", "start an interactive shell against the ACME server", cmdShell)
}

// cmdShell implements the interactive mode, grounded on the teacher
// pack's ishell-based ACME shell: a handful of named commands bound to
// the same Session the non-interactive subcommands use, so a human can
// poke at a CA's raw responses without scripting a whole client.
func cmdShell(p *program.Program) {
	if err := session.Setup(context.Background()); err != nil {
		p.Fatal("cannot fetch directory: %v", err)
	}

	shell := ishell.New()
	shell.SetPrompt(fmt.Sprintf("[ acmecore %s ] > ", session.ShortName()))

	shell.AddCmd(&ishell.Cmd{
		Name: "directory",
		Help: "print the resolved ACME dialect and directory metadata",
		Func: func(c *ishell.Context) {
			c.Printf("dialect: %s\n", session.Dialect())
			c.Printf("base URL: %s\n", session.BaseURL())
			c.Printf("terms of service: %s\n", session.CAAgreement())
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "get",
		Help: "get <url>: send an unsigned GET request",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: get <url>")
				return
			}

			err := session.GET(context.Background(), c.Args[0],
				func(doc *acmecore.JSONValue) error {
					data, err := doc.MarshalIndent("", "  ")
					if err != nil {
						return err
					}

					c.Println(string(data))
					return nil
				},
				func(body []byte, header http.Header) error {
					c.Printf("%s\n", body)
					return nil
				})
			if err != nil {
				c.Printf("error: %v\n", err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "account",
		Help: "print the key identifier of the account currently bound to the session",
		Func: func(c *ishell.Context) {
			if id := session.AccountID(); id != "" {
				c.Println(id)
			} else {
				c.Println("(no account bound)")
			}
		},
	})

	shell.Println("ACME shell ready. Type 'help' for a command list.")
	shell.Run()
}
