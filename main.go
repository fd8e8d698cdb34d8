package main

import (
	"github.com/maxgio92/wallprof/pkg/cmd"
)

func main() {
	cmd.Execute()
}
