package main

import verify_cli "github.com/getvaultapp/vault-verify/cmd/verify_cli"

func main() {
	verify_cli.RunCli()
}
