package main

import "github.com/sidhant-sriv/looply-api/cmd"

func main() {
	cmd.Execute()
}
