package main

import "github.com/MeKo-Tech/doctext/cmd/doctext/cmd"

func main() {
	cmd.Execute()
}
