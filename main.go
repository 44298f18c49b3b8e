package main

import "github.com/fgrehm/cradle/cmd"

func main() {
	cmd.Execute()
}
