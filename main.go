package main

import "github.com/freerahn/stockblog/cmd"

func main() {
	cmd.Execute()
}
