package main

import "github.com/nightcity-labs/choom/cmd"

func main() {
	cmd.Execute()
}
