package main

import "ocsync/cmd"

func main() {
	cmd.Execute()
}
