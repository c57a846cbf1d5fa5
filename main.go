package main

import "medprofile/cmd"

func main() {
	cmd.Execute()
}
