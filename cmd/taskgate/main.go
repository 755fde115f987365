package main

import "github.com/terraconstructs/taskgate/cmd/taskgate/cmd"

func main() {
	cmd.Execute()
}
