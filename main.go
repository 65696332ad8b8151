package main

import "github.com/fakeyudi/intervbot/cmd"

func main() {
	cmd.Execute()
}
