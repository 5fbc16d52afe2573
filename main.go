package main

import "martbuild/cmd"

func main() {
	cmd.Execute()
}
