package main

import "busdelay/cmd"

func main() {
	cmd.Execute()
}
