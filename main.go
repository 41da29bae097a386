package main

import "github.com/cleargate/pamapi/cmd"

func main() {
	cmd.Execute()
}
