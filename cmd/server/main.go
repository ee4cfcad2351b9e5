package main

import "github.com/campusreg/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
