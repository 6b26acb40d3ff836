package main

import "videoforge/cmd"

func main() {
	cmd.Execute()
}
