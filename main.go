package main

import "github.com/KaramelBytes/clams-cli/cmd"

func main() {
	cmd.Execute()
}
