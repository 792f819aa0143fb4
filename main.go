package main

import "github.com/lukman83/campaign-scout/cmd"

func main() {
	cmd.Execute()
}
