package main

import "github.com/jsphweid/meigen/cmd"

func main() {
	cmd.Execute()
}
