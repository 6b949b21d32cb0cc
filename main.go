package main

import "github.com/ValentinKolb/triedb/cmd"

func main() {
	cmd.Execute()
}
