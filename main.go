package main

import "github.com/samkaj/maker/cmd"

func main() {
	cmd.Execute()
}
