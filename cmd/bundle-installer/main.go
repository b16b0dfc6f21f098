package main

import "github.com/bundlekit/bundle-installer/cmd/bundle-installer/cmd"

func main() {
	cmd.Execute()
}
