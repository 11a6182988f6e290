package main

import "github.com/oshokin/rocjpeg-setup/cmd/rocjpeg-setup/cmd"

func main() {
	cmd.Execute()
}
