package main

import "lecturetube/cmd"

func main() {
	cmd.Execute()
}
