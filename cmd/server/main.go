package main

import "github.com/granada-sport/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
