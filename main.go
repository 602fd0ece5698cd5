package main

import "github.com/nettodev/realms-auth/cmd"

func main() {
	cmd.Execute()
}
