package main

import "github.com/KaramelBytes/reclink-cli/cmd"

func main() {
	cmd.Execute()
}
