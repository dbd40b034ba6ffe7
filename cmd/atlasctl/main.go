package main

import "github.com/OFFIS-RIT/atlas/backend/internal/cli"

func main() {
	cli.Execute()
}
