package main

import "github.com/dbsmedya/corpfetch/cmd/corpfetch/cmd"

func main() {
	cmd.Execute()
}
