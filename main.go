package main

import "github.com/maastricht-university/bestof/cmd"

func main() {
	cmd.Execute()
}
