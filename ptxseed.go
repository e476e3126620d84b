package main

import (
	_ "time/tzdata"

	"github.com/sagan/ptxseed/cmd"

	_ "github.com/sagan/ptxseed/client/all"
	_ "github.com/sagan/ptxseed/cmd/all"
	_ "github.com/sagan/ptxseed/site/all"
)

func main() {
	cmd.Execute()
}
