package main

import "plateau/cmd"

func main() {
	cmd.Execute()
}
