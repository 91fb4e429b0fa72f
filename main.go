package main

import "github.com/iksnae/repo-pilot/cmd"

func main() {
	cmd.Execute()
}
