package main

import "github.com/Janine65/jafr-ng-core/cmd/jafrctl/cmd"

func main() {
	cmd.Execute()
}
