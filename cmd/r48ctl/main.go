package main

import "github.com/samsamfire/gor48/cmd/r48ctl/cmd"

func main() {
	cmd.Execute()
}
