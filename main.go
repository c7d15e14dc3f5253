package main

import "github.com/stevehiehn/skewer/cmd"

func main() {
	cmd.Execute()
}
