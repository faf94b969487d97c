package main

import "github.com/eduadmin/apiserver/cmd"

func main() {
	cmd.Execute()
}
