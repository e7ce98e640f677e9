package main

import (
	"remit-scout/cmd"
)

func main() {
	cmd.Execute()
}
