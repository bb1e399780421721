package main

import (
	"context"
	"fmt"
	"net/http"

	acmecore "github.com/modmd/acmecore"
	"go.n16f.net/program"
)

func addGetCommand() {
	c := p.AddCommand("get", "send an unsigned GET request to an ACME URL", cmdGet)
	c.AddArgument("url", "the URL to fetch")
}

func cmdGet(p *program.Program) {
	url := p.ArgumentValue("url")

	err := session.GET(context.Background(), url,
		func(doc *acmecore.JSONValue) error {
			data, err := doc.MarshalIndent("", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(data))
			return nil
		},
		func(body []byte, header http.Header) error {
			fmt.Printf("%s\n", body)
			return nil
		})
	if err != nil {
		p.Fatal("cannot fetch %q: %v", url, err)
	}
}
