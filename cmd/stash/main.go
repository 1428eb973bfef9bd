package main

import "github.com/withgalaxy/stash/pkg/cli"

func main() {
	cli.Execute()
}
