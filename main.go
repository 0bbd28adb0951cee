package main

import "github.com/fleetops/access-management/cmd"

func main() {
	cmd.Execute()
}
