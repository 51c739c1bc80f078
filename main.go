package main

import "github.com/n43ms/PMAccelerator-Assessment-Weather-App/cmd"

func main() {
	cmd.Execute()
}
