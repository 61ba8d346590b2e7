package main

import "github.com/jsphweid/amtdata/cmd"

func main() {
	cmd.Execute()
}
