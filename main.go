package main

import "github.com/cbld/cbld/cmd"

func main() {
	cmd.Execute()
}
