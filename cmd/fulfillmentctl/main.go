package main

import "github.com/jhoicas/fulfillment-engine/internal/cli"

func main() {
	cli.Execute()
}
