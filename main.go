package main

import "cowboy-strava/cmd"

func main() {
	cmd.Execute()
}
