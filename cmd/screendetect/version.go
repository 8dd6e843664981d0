package main

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
	"gocv.io/x/gocv"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("screendetect %s\n", version)
			fmt.Printf("go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			fmt.Printf("gocv %s\n", gocv.Version())
			fmt.Printf("opencv %s\n", gocv.OpenCVVersion())
			return nil
		},
	}
}
