package main

import "github.com/esencia-retail/backoffice-cli/cmd/backoffice/cmd"

func main() {
	cmd.Execute()
}
